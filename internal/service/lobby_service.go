package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	"github.com/yourusername/study-assistant-api/internal/domain/repository"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
)

// LobbyService координирует присоединение и выход участников комнаты
type LobbyService struct {
	db              *gorm.DB
	quizRepo        repository.QuizRepository
	questionRepo    repository.QuestionRepository
	participantRepo repository.ParticipantRepository
	timingService   *TimingService
}

// NewLobbyService создает новый сервис лобби
func NewLobbyService(
	db *gorm.DB,
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	participantRepo repository.ParticipantRepository,
	timingService *TimingService,
) *LobbyService {
	return &LobbyService{
		db:              db,
		quizRepo:        quizRepo,
		questionRepo:    questionRepo,
		participantRepo: participantRepo,
		timingService:   timingService,
	}
}

// LobbyMember — участник лобби в снимке состояния
type LobbyMember struct {
	UserID    uint      `json:"user_id"`
	Name      string    `json:"name"`
	JoinedAt  time.Time `json:"joined_at"`
	IsCreator bool      `json:"is_creator"`
}

// LobbySnapshot — состояние лобби для одного цикла опроса
type LobbySnapshot struct {
	RoomCode      string        `json:"room_code"`
	Title         string        `json:"title"`
	Members       []LobbyMember `json:"members"`
	QuestionCount int           `json:"question_count"`
	Started       bool          `json:"started"`
	Aborted       bool          `json:"aborted"`
	QuizURL       string        `json:"quiz_url"`
	IsCreator     bool          `json:"is_creator"`
	RemainingSec  int           `json:"remaining_sec"`
}

// Join присоединяет пользователя к комнате по коду. Повторный join того же
// пользователя идемпотентен и возвращает существующую запись участника.
func (s *LobbyService) Join(code string, userID uint, name string) (*entity.Participant, error) {
	quiz, err := s.quizRepo.GetByRoomCode(code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: room %s", apperrors.ErrNotFound, code)
		}
		return nil, err
	}

	if quiz.IsAborted() {
		return nil, ErrRoomAborted
	}
	if !quiz.IsActive {
		return nil, ErrRoomInactive
	}

	state, err := s.timingService.ReadState(code)
	if err != nil {
		return nil, err
	}
	if state.Aborted {
		return nil, ErrRoomAborted
	}
	if state.Started() {
		return nil, ErrAlreadyStarted
	}

	participant := &entity.Participant{
		QuizID:   quiz.ID,
		UserID:   userID,
		Name:     name,
		JoinedAt: time.Now(),
	}
	existing, created, err := s.participantRepo.GetOrCreate(participant)
	if err != nil {
		return nil, err
	}
	if created {
		log.Printf("[LobbyService] Пользователь ID=%d присоединился к комнате %s", userID, code)
	}
	return existing, nil
}

// EnsureParticipant идемпотентно гарантирует запись участника, минуя
// проверки фазы. Используется страницей викторины: открывший ее по
// прямой ссылке пользователь автоматически становится участником.
func (s *LobbyService) EnsureParticipant(quiz *entity.Quiz, userID uint, name string) (*entity.Participant, error) {
	participant := &entity.Participant{
		QuizID:   quiz.ID,
		UserID:   userID,
		Name:     name,
		JoinedAt: time.Now(),
	}
	existing, _, err := s.participantRepo.GetOrCreate(participant)
	return existing, err
}

// Start записывает окно викторины. Только создатель может стартовать;
// для остальных возвращается apperrors.ErrForbidden (обработчик делает
// молчаливый редирект в лобби, без тела ошибки). Повторный старт
// разрешен и перезаписывает окно для всех участников.
func (s *LobbyService) Start(code string, userID uint) (*entity.Quiz, error) {
	quiz, err := s.quizRepo.GetByRoomCode(code)
	if err != nil {
		return nil, err
	}
	if !quiz.IsCreator(userID) {
		return nil, apperrors.ErrForbidden
	}
	if quiz.IsAborted() {
		return nil, ErrRoomAborted
	}
	if !quiz.IsActive {
		return nil, ErrRoomInactive
	}

	duration := time.Duration(quiz.Duration) * time.Minute
	if _, _, err := s.timingService.MarkStarted(code, time.Now(), duration); err != nil {
		return nil, err
	}
	log.Printf("[LobbyService] Комната %s запущена создателем ID=%d", code, userID)
	return quiz, nil
}

// Leave обрабатывает выход пользователя из комнаты. Выход создателя
// прерывает комнату целиком: выставляется эфемерный флаг, в БД фиксируется
// статус aborted и удаляются все участники. Выход обычного участника
// удаляет только его запись. Возвращает true, если комната была прервана.
func (s *LobbyService) Leave(code string, userID uint) (bool, error) {
	quiz, err := s.quizRepo.GetByRoomCode(code)
	if err != nil {
		return false, err
	}

	if quiz.IsCreator(userID) {
		if err := s.timingService.MarkAborted(code); err != nil {
			return false, err
		}
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.quizRepo.UpdateStatus(tx, quiz.ID, entity.QuizStatusAborted); err != nil {
				return err
			}
			return s.participantRepo.DeleteAllForQuiz(tx, quiz.ID)
		})
		if err != nil {
			return false, err
		}
		log.Printf("[LobbyService] Создатель ID=%d прервал комнату %s", userID, code)
		return true, nil
	}

	participant, err := s.participantRepo.GetByQuizAndUser(quiz.ID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, ErrNotInRoom
		}
		return false, err
	}
	if err := s.participantRepo.Delete(participant.ID); err != nil {
		return false, err
	}
	log.Printf("[LobbyService] Участник ID=%d покинул комнату %s", userID, code)
	return false, nil
}

// Status возвращает снимок лобби для опроса клиентом. Снимок собирается
// best-effort: отсутствие таймингов не считается ошибкой.
func (s *LobbyService) Status(code string, userID uint) (*LobbySnapshot, error) {
	quiz, err := s.quizRepo.GetByRoomCode(code)
	if err != nil {
		return nil, err
	}

	state, err := s.timingService.ReadState(code)
	if err != nil {
		return nil, err
	}

	participants, err := s.participantRepo.ListByQuiz(quiz.ID)
	if err != nil {
		return nil, err
	}

	questionCount, err := s.questionRepo.CountByQuizID(quiz.ID)
	if err != nil {
		return nil, err
	}

	members := make([]LobbyMember, 0, len(participants))
	for _, p := range participants {
		members = append(members, LobbyMember{
			UserID:    p.UserID,
			Name:      p.Name,
			JoinedAt:  p.JoinedAt,
			IsCreator: quiz.IsCreator(p.UserID),
		})
	}

	now := time.Now()
	return &LobbySnapshot{
		RoomCode:      quiz.RoomCode,
		Title:         quiz.Title,
		Members:       members,
		QuestionCount: int(questionCount),
		Started:       state.Started(),
		Aborted:       state.Aborted || quiz.IsAborted(),
		QuizURL:       fmt.Sprintf("/api/rooms/%s/quiz", quiz.RoomCode),
		IsCreator:     quiz.IsCreator(userID),
		RemainingSec:  int(state.Remaining(now).Seconds()),
	}, nil
}

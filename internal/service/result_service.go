package service

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	"github.com/yourusername/study-assistant-api/internal/domain/repository"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
)

// ResultService отвечает за прием ответов и турнирное ранжирование
type ResultService struct {
	db              *gorm.DB
	quizRepo        repository.QuizRepository
	questionRepo    repository.QuestionRepository
	participantRepo repository.ParticipantRepository
	resultRepo      repository.ResultRepository
	timingService   *TimingService
}

// NewResultService создает новый сервис результатов
func NewResultService(
	db *gorm.DB,
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	participantRepo repository.ParticipantRepository,
	resultRepo repository.ResultRepository,
	timingService *TimingService,
) *ResultService {
	return &ResultService{
		db:              db,
		quizRepo:        quizRepo,
		questionRepo:    questionRepo,
		participantRepo: participantRepo,
		resultRepo:      resultRepo,
		timingService:   timingService,
	}
}

// Submit принимает ответы участника и сохраняет единственный результат
// пары (комната, участник). Балл — число точных совпадений меток, по
// одному очку за вопрос, без частичных и отрицательных очков. Затраченное
// время ограничено дедлайном: elapsed = min(now, ends_at) - start_at.
func (s *ResultService) Submit(code string, userID uint, answers map[uint]string) (*entity.QuizResult, error) {
	quiz, err := s.quizRepo.GetByRoomCode(code)
	if err != nil {
		return nil, err
	}

	participant, err := s.participantRepo.GetByQuizAndUser(quiz.ID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrNotJoined
		}
		return nil, err
	}

	questions, err := s.questionRepo.GetByQuizID(quiz.ID)
	if err != nil {
		return nil, err
	}

	score := 0
	for _, q := range questions {
		if label, ok := answers[q.ID]; ok && q.IsCorrect(label) {
			score++
		}
	}

	state, err := s.timingService.ReadState(code)
	if err != nil {
		return nil, err
	}

	// Отсутствие записи старта (истек TTL) дает нулевое время, не ошибку
	var timeTakenMs *int64
	if state.StartAt != nil {
		ms := state.ClampElapsed(time.Now()).Milliseconds()
		timeTakenMs = &ms
	}

	result := &entity.QuizResult{
		QuizID:        quiz.ID,
		ParticipantID: participant.ID,
		Score:         score,
		TimeTakenMs:   timeTakenMs,
		Rank:          0, // ранг назначает только ComputeRankings
	}
	if err := s.resultRepo.Upsert(result); err != nil {
		return nil, fmt.Errorf("failed to store result: %w", err)
	}

	participant.Score = score
	participant.HasStarted = true
	if err := s.participantRepo.Update(participant); err != nil {
		return nil, err
	}

	log.Printf("[ResultService] Комната %s: участник ID=%d набрал %d из %d", code, participant.ID, score, len(questions))
	return result, nil
}

// ComputeRankings пересчитывает турнирные ранги комнаты. Единственное
// место, где назначаются ранги. Порядок: очки по убыванию, время по
// возрастанию, отсутствующее время последним. Равные (очки, время) делят
// ранг; следующий ранг равен позиции (1-based). Пересчет идемпотентен:
// записываются только строки, чей сохраненный ранг отличается.
func (s *ResultService) ComputeRankings(quizID uint) ([]entity.QuizResult, error) {
	results, err := s.resultRepo.GetAllForQuiz(quizID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return results, nil
	}

	changed := assignRanks(results)

	if len(changed) > 0 {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			for id, rank := range changed {
				if err := s.resultRepo.UpdateRank(tx, id, rank); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to persist ranks: %w", err)
		}
		log.Printf("[ResultService] Комната ID=%d: обновлено рангов %d из %d", quizID, len(changed), len(results))
	}

	return results, nil
}

// assignRanks сортирует результаты и выставляет турнирные ранги на месте.
// Возвращает ID результатов, чей ранг изменился, с новым значением.
func assignRanks(results []entity.QuizResult) map[uint]int {
	sort.SliceStable(results, func(i, j int) bool {
		si, ti := results[i].SortKey()
		sj, tj := results[j].SortKey()
		if si != sj {
			return si > sj
		}
		return ti < tj
	})

	changed := make(map[uint]int)
	prevScore, prevTime := 0, int64(0)
	currentRank := 0
	for i := range results {
		score, t := results[i].SortKey()
		if i == 0 || score != prevScore || t != prevTime {
			currentRank = i + 1
		}
		prevScore, prevTime = score, t
		if results[i].Rank != currentRank {
			changed[results[i].ID] = currentRank
			results[i].Rank = currentRank
		}
	}
	return changed
}

// RankedRecord — компактная запись для опроса таблицы результатов
type RankedRecord struct {
	Rank        int    `json:"rank"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	TimeTakenMs *int64 `json:"time_taken_ms,omitempty"`
}

// ResultsView возвращает ранжированные результаты комнаты, пересчитывая
// ранги при каждом просмотре. Первый просмотр закрывает комнату:
// is_active снимается, статус становится finished.
func (s *ResultService) ResultsView(code string) (*entity.Quiz, []entity.QuizResult, error) {
	quiz, err := s.quizRepo.GetByRoomCode(code)
	if err != nil {
		return nil, nil, err
	}

	if quiz.IsActive && !quiz.IsAborted() {
		if err := s.quizRepo.UpdateStatus(nil, quiz.ID, entity.QuizStatusFinished); err != nil {
			return nil, nil, err
		}
		quiz.Status = entity.QuizStatusFinished
		quiz.IsActive = false
		log.Printf("[ResultService] Комната %s закрыта первым просмотром результатов", code)
	}

	results, err := s.ComputeRankings(quiz.ID)
	if err != nil {
		return nil, nil, err
	}
	return quiz, results, nil
}

// ResultsData возвращает компактные записи для опроса клиентом
func (s *ResultService) ResultsData(code string) ([]RankedRecord, error) {
	quiz, err := s.quizRepo.GetByRoomCode(code)
	if err != nil {
		return nil, err
	}
	results, err := s.ComputeRankings(quiz.ID)
	if err != nil {
		return nil, err
	}

	records := make([]RankedRecord, 0, len(results))
	for _, r := range results {
		name := ""
		if r.Participant != nil {
			name = r.Participant.Name
		}
		records = append(records, RankedRecord{
			Rank:        r.Rank,
			Name:        name,
			Score:       r.Score,
			TimeTakenMs: r.TimeTakenMs,
		})
	}
	return records, nil
}

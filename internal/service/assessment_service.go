package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skillmatrix/internal/authz"
	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
)

// AssessmentService drives the assessment lifecycle. Every mutation runs in
// one transaction: the assessment write, its history row and the resulting
// notification commit or roll back together.
type AssessmentService struct {
	db               *sql.DB
	assessmentRepo   *repository.AssessmentRepository
	historyRepo      *repository.AssessmentHistoryRepository
	notificationRepo *repository.NotificationRepository
	userRepo         *repository.UserRepository
	skillRepo        *repository.SkillRepository
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(
	db *sql.DB,
	assessmentRepo *repository.AssessmentRepository,
	historyRepo *repository.AssessmentHistoryRepository,
	notificationRepo *repository.NotificationRepository,
	userRepo *repository.UserRepository,
	skillRepo *repository.SkillRepository,
) *AssessmentService {
	return &AssessmentService{
		db:               db,
		assessmentRepo:   assessmentRepo,
		historyRepo:      historyRepo,
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		skillRepo:        skillRepo,
	}
}

func (s *AssessmentService) getUser(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SubmitSelfAssessment creates or overwrites the actor's assessment for one
// skill. A fresh submission starts pending; resubmitting always forces the
// status back to pending, whatever it was, leaving the manager score alone.
func (s *AssessmentService) SubmitSelfAssessment(actorID uint, input models.SelfAssessmentInput) (*models.Assessment, error) {
	if input.SelfScore < 1 || input.SelfScore > 5 {
		return nil, validationErr("self_score", "must be between 1 and 5")
	}
	if input.SkillID == 0 {
		return nil, validationErr("skill_id", "is required")
	}

	actor, err := s.getUser(actorID)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditSelf(actor, actor) {
		return nil, ErrPermissionDenied
	}

	skill, err := s.skillRepo.GetByID(input.SkillID)
	if errors.Is(err, repository.ErrSkillNotFound) {
		return nil, fmt.Errorf("%w: skill %d", ErrNotFound, input.SkillID)
	}
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := s.assessmentRepo.GetByUserAndSkillForUpdateTx(tx, actor.ID, skill.ID)
	if err != nil {
		return nil, translateConflict(err)
	}

	var assessment *models.Assessment
	if existing == nil {
		assessment = &models.Assessment{
			UserID:    actor.ID,
			SkillID:   skill.ID,
			SelfScore: input.SelfScore,
			Status:    models.StatusPending,
			Comment:   input.Comment,
		}
		if err := s.assessmentRepo.CreateTx(tx, assessment); err != nil {
			return nil, translateConflict(err)
		}

		history := &models.AssessmentHistory{
			AssessmentID: assessment.ID,
			OldScore:     nil,
			NewScore:     input.SelfScore,
			ChangedByID:  actor.ID,
			ChangeType:   models.ChangeCreated,
			Comment:      input.Comment,
		}
		if err := s.historyRepo.CreateTx(tx, history); err != nil {
			return nil, err
		}
	} else {
		oldScore := existing.SelfScore
		if err := s.assessmentRepo.UpdateSelfTx(tx, existing.ID, input.SelfScore, input.Comment); err != nil {
			return nil, translateConflict(err)
		}

		history := &models.AssessmentHistory{
			AssessmentID: existing.ID,
			OldScore:     &oldScore,
			NewScore:     input.SelfScore,
			ChangedByID:  actor.ID,
			ChangeType:   models.ChangeUpdated,
			Comment:      input.Comment,
		}
		if err := s.historyRepo.CreateTx(tx, history); err != nil {
			return nil, err
		}

		assessment = existing
		assessment.SelfScore = input.SelfScore
		assessment.Comment = input.Comment
		assessment.Status = models.StatusPending
		assessment.RejectReason = nil
	}

	// A submission re-opens review, so the manager hears about it in the
	// same transaction.
	if actor.ManagerID != nil {
		notification := &models.Notification{
			UserID:  *actor.ManagerID,
			Title:   "Assessment awaiting review",
			Message: fmt.Sprintf("%s submitted a self-assessment for %s", actor.FullName, skill.Name),
			Type:    models.NotificationInfo,
			Metadata: map[string]any{
				"assessment_id": assessment.ID,
				"skill_id":      skill.ID,
			},
		}
		if err := s.notificationRepo.CreateTx(tx, notification); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, translateConflict(err)
	}

	return assessment, nil
}

// Review approves or rejects a pending assessment. Rejection requires a
// reason; both input checks happen before anything is written.
func (s *AssessmentService) Review(actorID, assessmentID uint, input models.ReviewInput) (*models.Assessment, error) {
	switch input.Decision {
	case models.DecisionApprove, models.DecisionReject:
	default:
		return nil, validationErr("decision", "must be approve or reject")
	}
	if input.Decision == models.DecisionReject && input.Reason == "" {
		return nil, validationErr("reason", "is required when rejecting")
	}
	if input.ReviewerScore != nil && (*input.ReviewerScore < 1 || *input.ReviewerScore > 5) {
		return nil, validationErr("reviewer_score", "must be between 1 and 5")
	}

	actor, err := s.getUser(actorID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if errors.Is(err, repository.ErrAssessmentNotFound) {
		return nil, fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if err != nil {
		return nil, err
	}

	owner, err := s.getUser(assessment.UserID)
	if err != nil {
		return nil, err
	}
	if !authz.CanReview(actor, owner) {
		return nil, ErrPermissionDenied
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.assessmentRepo.GetByIDForUpdateTx(tx, assessmentID)
	if errors.Is(err, repository.ErrAssessmentNotFound) {
		return nil, fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if err != nil {
		return nil, translateConflict(err)
	}
	if current.Status != models.StatusPending {
		return nil, &TransitionError{From: string(current.Status), Operation: "review"}
	}

	var notification *models.Notification
	if input.Decision == models.DecisionApprove {
		score := current.SelfScore
		if input.ReviewerScore != nil {
			score = *input.ReviewerScore
		}

		if err := s.assessmentRepo.ApproveTx(tx, assessmentID, score, actor.ID); err != nil {
			return nil, translateConflict(err)
		}

		history := &models.AssessmentHistory{
			AssessmentID: assessmentID,
			OldScore:     current.ManagerScore,
			NewScore:     score,
			ChangedByID:  actor.ID,
			ChangeType:   models.ChangeApproved,
		}
		if err := s.historyRepo.CreateTx(tx, history); err != nil {
			return nil, err
		}

		now := time.Now()
		current.Status = models.StatusApproved
		current.ManagerScore = &score
		current.ApprovedByID = &actor.ID
		current.ApprovedAt = &now
		current.RejectReason = nil

		notification = &models.Notification{
			UserID:  owner.ID,
			Title:   "Assessment approved",
			Message: fmt.Sprintf("%s approved your assessment with score %d", actor.FullName, score),
			Type:    models.NotificationSuccess,
		}
	} else {
		if err := s.assessmentRepo.RejectTx(tx, assessmentID, input.Reason); err != nil {
			return nil, translateConflict(err)
		}

		selfScore := current.SelfScore
		reason := input.Reason
		history := &models.AssessmentHistory{
			AssessmentID: assessmentID,
			OldScore:     &selfScore,
			NewScore:     selfScore,
			ChangedByID:  actor.ID,
			ChangeType:   models.ChangeRejected,
			Comment:      &reason,
		}
		if err := s.historyRepo.CreateTx(tx, history); err != nil {
			return nil, err
		}

		current.Status = models.StatusRejected
		current.RejectReason = &reason

		notification = &models.Notification{
			UserID:  owner.ID,
			Title:   "Assessment rejected",
			Message: fmt.Sprintf("%s rejected your assessment: %s", actor.FullName, input.Reason),
			Type:    models.NotificationWarning,
		}
	}

	notification.Metadata = map[string]any{
		"assessment_id": assessmentID,
		"skill_id":      current.SkillID,
	}
	if err := s.notificationRepo.CreateTx(tx, notification); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, translateConflict(err)
	}

	return current, nil
}

// Adjust replaces the manager score of an already approved assessment. The
// status stays approved; only the effective score changes.
func (s *AssessmentService) Adjust(actorID, assessmentID uint, input models.AdjustInput) (*models.Assessment, error) {
	if input.ManagerScore < 1 || input.ManagerScore > 5 {
		return nil, validationErr("manager_score", "must be between 1 and 5")
	}

	actor, err := s.getUser(actorID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if errors.Is(err, repository.ErrAssessmentNotFound) {
		return nil, fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if err != nil {
		return nil, err
	}

	owner, err := s.getUser(assessment.UserID)
	if err != nil {
		return nil, err
	}
	if !authz.CanReview(actor, owner) {
		return nil, ErrPermissionDenied
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.assessmentRepo.GetByIDForUpdateTx(tx, assessmentID)
	if errors.Is(err, repository.ErrAssessmentNotFound) {
		return nil, fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if err != nil {
		return nil, translateConflict(err)
	}
	if current.Status != models.StatusApproved {
		return nil, &TransitionError{From: string(current.Status), Operation: "adjust"}
	}

	if err := s.assessmentRepo.AdjustTx(tx, assessmentID, input.ManagerScore); err != nil {
		return nil, translateConflict(err)
	}

	history := &models.AssessmentHistory{
		AssessmentID: assessmentID,
		OldScore:     current.ManagerScore,
		NewScore:     input.ManagerScore,
		ChangedByID:  actor.ID,
		ChangeType:   models.ChangeAdjusted,
		Comment:      input.Note,
	}
	if err := s.historyRepo.CreateTx(tx, history); err != nil {
		return nil, err
	}

	notification := &models.Notification{
		UserID:  owner.ID,
		Title:   "Confirmed score adjusted",
		Message: fmt.Sprintf("%s changed your confirmed score to %d", actor.FullName, input.ManagerScore),
		Type:    models.NotificationInfo,
		Metadata: map[string]any{
			"assessment_id": assessmentID,
			"skill_id":      current.SkillID,
		},
	}
	if err := s.notificationRepo.CreateTx(tx, notification); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, translateConflict(err)
	}

	newScore := input.ManagerScore
	current.ManagerScore = &newScore
	return current, nil
}

// GetByID retrieves one assessment, gated by the view predicate
func (s *AssessmentService) GetByID(actorID, assessmentID uint) (*models.Assessment, error) {
	actor, err := s.getUser(actorID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if errors.Is(err, repository.ErrAssessmentNotFound) {
		return nil, fmt.Errorf("%w: assessment %d", ErrNotFound, assessmentID)
	}
	if err != nil {
		return nil, err
	}

	owner, err := s.getUser(assessment.UserID)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(actor, owner) {
		return nil, ErrPermissionDenied
	}

	return assessment, nil
}

// HistoryFor retrieves an assessment's audit trail, newest first, optionally
// windowed by time. Gated by the view predicate.
func (s *AssessmentService) HistoryFor(actorID, assessmentID uint, since, until *time.Time) ([]models.AssessmentHistory, error) {
	if _, err := s.GetByID(actorID, assessmentID); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByAssessment(assessmentID, since, until)
}

// List retrieves assessments scoped to what the actor may see: employees get
// their own, managers their department, elevated roles everything.
func (s *AssessmentService) List(actorID uint, filters repository.AssessmentFilters) ([]models.AssessmentWithDetails, error) {
	actor, err := s.getUser(actorID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Role.IsElevated():
		// Unrestricted.
	case actor.Role == models.RoleManager:
		if filters.UserID != nil {
			owner, err := s.getUser(*filters.UserID)
			if err != nil {
				return nil, err
			}
			if !authz.CanView(actor, owner) {
				return nil, ErrPermissionDenied
			}
		}
		filters.DepartmentID = &actor.DepartmentID
	default:
		if filters.UserID != nil && *filters.UserID != actor.ID {
			return nil, ErrPermissionDenied
		}
		filters.UserID = &actor.ID
	}

	return s.assessmentRepo.List(filters)
}

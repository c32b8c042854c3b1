package models

import (
	"time"
)

// Role is the position a user holds in the organization hierarchy
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RoleDirector Role = "director"
)

// IsElevated reports whether the role has organization-wide access
func (r Role) IsElevated() bool {
	return r == RoleAdmin || r == RoleHR || r == RoleDirector
}

// AssessmentStatus is the review state of a skill assessment
type AssessmentStatus string

const (
	StatusPending  AssessmentStatus = "pending"
	StatusApproved AssessmentStatus = "approved"
	StatusRejected AssessmentStatus = "rejected"
)

// ChangeType classifies an assessment history entry
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeUpdated  ChangeType = "updated"
	ChangeApproved ChangeType = "approved"
	ChangeRejected ChangeType = "rejected"
	ChangeAdjusted ChangeType = "adjusted"
)

// NotificationType classifies a notification for UI rendering
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// User represents an employee, manager, admin, HR or director account
type User struct {
	ID            uint       `json:"id" db:"id"`
	Login         string     `json:"login" db:"login"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	FullName      string     `json:"full_name" db:"full_name"`
	Position      string     `json:"position" db:"position"`
	Role          Role       `json:"role" db:"role"`
	DepartmentID  uint       `json:"department_id" db:"department_id"`
	ManagerID     *uint      `json:"manager_id,omitempty" db:"manager_id"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty" db:"deactivated_at"`
}

// Department represents an organizational unit
type Department struct {
	ID          uint      `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Code        string    `json:"code" db:"code"`
	Description *string   `json:"description,omitempty" db:"description"`
	ManagerID   *uint     `json:"manager_id,omitempty" db:"manager_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// RequiredSkill declares that a department mandates a skill at a minimum
// score. At most one row exists per (department, skill) pair.
type RequiredSkill struct {
	DepartmentID uint      `json:"department_id" db:"department_id"`
	SkillID      uint      `json:"skill_id" db:"skill_id"`
	MinScore     int       `json:"min_score" db:"min_score"`
	Priority     int       `json:"priority" db:"priority"`
	IsRequired   bool      `json:"is_required" db:"is_required"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	SkillName string `json:"skill_name,omitempty" db:"-"`
}

// SkillCategory groups skills (e.g. Frontend, Backend, Design)
type SkillCategory struct {
	ID          uint      `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Skill represents a rateable competency
type Skill struct {
	ID              uint      `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Description     *string   `json:"description,omitempty" db:"description"`
	CategoryID      uint      `json:"category_id" db:"category_id"`
	DifficultyLevel int       `json:"difficulty_level" db:"difficulty_level"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	CategoryName string `json:"category_name,omitempty" db:"-"`
}

// Assessment is a user's rating for one skill. Exactly one row exists per
// (user, skill) pair; self-submission is an upsert.
type Assessment struct {
	ID           uint             `json:"id" db:"id"`
	UserID       uint             `json:"user_id" db:"user_id"`
	SkillID      uint             `json:"skill_id" db:"skill_id"`
	SelfScore    int              `json:"self_score" db:"self_score"`
	ManagerScore *int             `json:"manager_score,omitempty" db:"manager_score"`
	Status       AssessmentStatus `json:"status" db:"status"`
	Comment      *string          `json:"comment,omitempty" db:"comment"`
	RejectReason *string          `json:"reject_reason,omitempty" db:"reject_reason"`
	AssessedAt   time.Time        `json:"assessed_at" db:"assessed_at"`
	ApprovedByID *uint            `json:"approved_by_id,omitempty" db:"approved_by_id"`
	ApprovedAt   *time.Time       `json:"approved_at,omitempty" db:"approved_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// EffectiveScore is the score aggregation reads: the manager's score once
// the assessment is approved, the self score otherwise.
func (a *Assessment) EffectiveScore() int {
	if a.Status == StatusApproved && a.ManagerScore != nil {
		return *a.ManagerScore
	}
	return a.SelfScore
}

// AssessmentWithDetails includes user and skill information for listings
type AssessmentWithDetails struct {
	Assessment
	UserName     string `json:"user_name,omitempty"`
	UserLogin    string `json:"user_login,omitempty"`
	DepartmentID uint   `json:"user_department_id,omitempty"`
	SkillName    string `json:"skill_name,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
}

// AssessmentHistory is one append-only row per assessment transition.
// Rows are never updated or deleted individually.
type AssessmentHistory struct {
	ID           uint       `json:"id" db:"id"`
	AssessmentID uint       `json:"assessment_id" db:"assessment_id"`
	OldScore     *int       `json:"old_score,omitempty" db:"old_score"`
	NewScore     int        `json:"new_score" db:"new_score"`
	ChangedByID  uint       `json:"changed_by_id" db:"changed_by_id"`
	ChangeType   ChangeType `json:"change_type" db:"change_type"`
	Comment      *string    `json:"comment,omitempty" db:"comment"`
	ChangedAt    time.Time  `json:"changed_at" db:"changed_at"`
}

// Notification is an in-app alert created as a side effect of lifecycle
// transitions and read independently by the recipient
type Notification struct {
	ID        uint             `json:"id" db:"id"`
	UserID    uint             `json:"user_id" db:"user_id"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	ActionURL *string          `json:"action_url,omitempty" db:"action_url"`
	Metadata  map[string]any   `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	ReadAt    *time.Time       `json:"read_at,omitempty" db:"read_at"`
}

// Session represents an issued token tracked for invalidation
type Session struct {
	ID             string    `json:"id" db:"id"`
	UserID         uint      `json:"user_id" db:"user_id"`
	JTI            string    `json:"jti" db:"jti"`
	TokenType      string    `json:"token_type" db:"token_type"` // "access" or "refresh"
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	IPAddress      string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent      string    `json:"user_agent,omitempty" db:"user_agent"`
}

// AuditLog records auth and admin actions
type AuditLog struct {
	ID        uint      `json:"id" db:"id"`
	UserID    *uint     `json:"user_id,omitempty" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	Resource  string    `json:"resource" db:"resource"`
	Details   string    `json:"details,omitempty" db:"details"`
	IPAddress string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SelfAssessmentInput is the enumerated mutable surface of a self-submission
type SelfAssessmentInput struct {
	SkillID   uint    `json:"skill_id"`
	SelfScore int     `json:"self_score"`
	Comment   *string `json:"comment,omitempty"`
}

// ReviewDecision is a reviewer's verdict on a pending assessment
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// ReviewInput carries a reviewer's decision
type ReviewInput struct {
	Decision      ReviewDecision `json:"decision"`
	ReviewerScore *int           `json:"reviewer_score,omitempty"`
	Reason        string         `json:"reason,omitempty"`
}

// AdjustInput changes the manager score of an already approved assessment
type AdjustInput struct {
	ManagerScore int     `json:"manager_score"`
	Note         *string `json:"note,omitempty"`
}

// UserStats summarizes one user's assessments
type UserStats struct {
	UserID                 uint    `json:"user_id"`
	TotalAssessments       int     `json:"total_assessments"`
	PendingCount           int     `json:"pending_count"`
	ApprovedCount          int     `json:"approved_count"`
	RejectedCount          int     `json:"rejected_count"`
	AverageScore           float64 `json:"average_score"`
	RequiredSkills         int     `json:"required_skills"`
	ApprovedRequiredSkills int     `json:"approved_required_skills"`
	CompletionRate         float64 `json:"completion_rate"`
}

// CategoryStat is a per-category aggregate
type CategoryStat struct {
	CategoryID   uint    `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
}

// SkillComplianceStat reports how many department employees meet a required
// skill's minimum score
type SkillComplianceStat struct {
	SkillID        uint    `json:"skill_id"`
	SkillName      string  `json:"skill_name"`
	MinScore       int     `json:"min_score"`
	CompliantCount int     `json:"compliant_count"`
	TotalCount     int     `json:"total_count"`
	ComplianceRate float64 `json:"compliance_rate"`
}

// DepartmentStats aggregates assessments over a department's active employees
type DepartmentStats struct {
	DepartmentID           uint                  `json:"department_id"`
	DepartmentName         string                `json:"department_name"`
	EmployeeCount          int                   `json:"employee_count"`
	TotalAssessments       int                   `json:"total_assessments"`
	PendingCount           int                   `json:"pending_count"`
	ApprovedCount          int                   `json:"approved_count"`
	RejectedCount          int                   `json:"rejected_count"`
	AverageScore           float64               `json:"average_score"`
	RequiredSkills         int                   `json:"required_skills"`
	ApprovedRequiredSkills int                   `json:"approved_required_skills"`
	CompletionRate         float64               `json:"completion_rate"`
	SkillCoverage          float64               `json:"skill_coverage"`
	CategoryStats          []CategoryStat        `json:"category_stats"`
	ComplianceStats        []SkillComplianceStat `json:"compliance_stats"`
}

// SkillGap is a required skill whose non-compliance exceeds the reporting
// threshold
type SkillGap struct {
	SkillID           uint    `json:"skill_id"`
	SkillName         string  `json:"skill_name"`
	MinScore          int     `json:"min_score"`
	NonCompliantCount int     `json:"non_compliant_count"`
	TotalEmployees    int     `json:"total_employees"`
	GapPercentage     float64 `json:"gap_percentage"`
}

// ComparisonEntry is one entity's column in a multi-entity comparison.
// Skills the entity has no score for are absent from SkillScores.
type ComparisonEntry struct {
	EntityID     uint             `json:"entity_id"`
	EntityName   string           `json:"entity_name"`
	SkillScores  map[uint]float64 `json:"skill_scores"`
	AverageScore float64          `json:"average_score"`
}

// TrendPoint is one calendar day's activity counts
type TrendPoint struct {
	Date           string `json:"date"`
	NewUsers       int    `json:"new_users"`
	NewAssessments int    `json:"new_assessments"`
}

// TopPerformer is one row of a manager's leaderboard
type TopPerformer struct {
	UserID       uint    `json:"user_id"`
	FullName     string  `json:"full_name"`
	Position     string  `json:"position"`
	AverageScore float64 `json:"average_score"`
	PendingCount int     `json:"pending_count"`
}

// RecommendedSkill is a required skill the user has not had approved yet
type RecommendedSkill struct {
	Skill    Skill `json:"skill"`
	MinScore int   `json:"min_score"`
	Priority int   `json:"priority"`
}

// EmployeeDashboard is the payload assembled for the employee role
type EmployeeDashboard struct {
	Stats             UserStats          `json:"stats"`
	Notifications     []Notification     `json:"notifications"`
	RecommendedSkills []RecommendedSkill `json:"recommended_skills"`
}

// ManagerDashboard is the payload assembled for the manager role
type ManagerDashboard struct {
	Stats         DepartmentStats         `json:"stats"`
	SkillGaps     []SkillGap              `json:"skill_gaps"`
	PendingQueue  []AssessmentWithDetails `json:"pending_queue"`
	TopPerformers []TopPerformer          `json:"top_performers"`
}

// CompanyTotals are the organization-wide headline numbers
type CompanyTotals struct {
	TotalUsers         int     `json:"total_users"`
	TotalDepartments   int     `json:"total_departments"`
	TotalSkills        int     `json:"total_skills"`
	TotalAssessments   int     `json:"total_assessments"`
	PendingAssessments int     `json:"pending_assessments"`
	ApprovedCount      int     `json:"approved_assessments"`
	AverageScore       float64 `json:"average_score"`
}

// AdminDashboard is the payload assembled for admin, HR and director roles
type AdminDashboard struct {
	Totals          CompanyTotals     `json:"totals"`
	DepartmentStats []DepartmentStats `json:"department_stats"`
	CategoryStats   []CategoryStat    `json:"category_stats"`
	ActivityTrend   []TrendPoint      `json:"activity_trend"`
}

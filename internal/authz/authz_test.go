package authz

import (
	"testing"

	"skillmatrix/internal/models"
)

func user(id uint, role models.Role, deptID uint) *models.User {
	return &models.User{ID: id, Role: role, DepartmentID: deptID}
}

func TestCanView(t *testing.T) {
	tests := []struct {
		name  string
		actor *models.User
		owner *models.User
		want  bool
	}{
		{"owner sees own", user(1, models.RoleEmployee, 10), user(1, models.RoleEmployee, 10), true},
		{"employee cannot see peer", user(1, models.RoleEmployee, 10), user(2, models.RoleEmployee, 10), false},
		{"manager sees own department", user(1, models.RoleManager, 10), user(2, models.RoleEmployee, 10), true},
		{"manager cannot see other department", user(1, models.RoleManager, 10), user(2, models.RoleEmployee, 20), false},
		{"admin sees everything", user(1, models.RoleAdmin, 10), user(2, models.RoleEmployee, 20), true},
		{"hr sees everything", user(1, models.RoleHR, 10), user(2, models.RoleEmployee, 20), true},
		{"director sees everything", user(1, models.RoleDirector, 10), user(2, models.RoleEmployee, 20), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanView(tt.actor, tt.owner); got != tt.want {
				t.Errorf("CanView() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanEditSelf(t *testing.T) {
	tests := []struct {
		name  string
		actor *models.User
		owner *models.User
		want  bool
	}{
		{"self", user(1, models.RoleEmployee, 10), user(1, models.RoleEmployee, 10), true},
		{"manager cannot edit report's self-assessment", user(1, models.RoleManager, 10), user(2, models.RoleEmployee, 10), false},
		{"admin cannot edit someone else's self-assessment", user(1, models.RoleAdmin, 10), user(2, models.RoleEmployee, 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanEditSelf(tt.actor, tt.owner); got != tt.want {
				t.Errorf("CanEditSelf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanReview(t *testing.T) {
	tests := []struct {
		name  string
		actor *models.User
		owner *models.User
		want  bool
	}{
		{"employee cannot review", user(1, models.RoleEmployee, 10), user(2, models.RoleEmployee, 10), false},
		{"manager reviews own department", user(1, models.RoleManager, 10), user(2, models.RoleEmployee, 10), true},
		{"manager cannot review other department", user(1, models.RoleManager, 10), user(2, models.RoleEmployee, 20), false},
		{"admin reviews anyone", user(1, models.RoleAdmin, 10), user(2, models.RoleEmployee, 20), true},
		{"hr reviews anyone", user(1, models.RoleHR, 10), user(2, models.RoleEmployee, 20), true},
		{"director reviews anyone", user(1, models.RoleDirector, 10), user(2, models.RoleEmployee, 20), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanReview(tt.actor, tt.owner); got != tt.want {
				t.Errorf("CanReview() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanReviewIndirectSuperior(t *testing.T) {
	// A manager from another department stays excluded even when the
	// owner's manager chain leads to them.
	managerID := uint(1)
	actor := user(1, models.RoleManager, 10)
	owner := user(2, models.RoleEmployee, 20)
	owner.ManagerID = &managerID

	if CanReview(actor, owner) {
		t.Error("Cross-department manager must not review via the manager chain")
	}
}

func TestWouldCreateManagerCycle(t *testing.T) {
	mid := func(id uint) *uint { return &id }
	users := map[uint]*models.User{
		1: {ID: 1},
		2: {ID: 2, ManagerID: mid(1)},
		3: {ID: 3, ManagerID: mid(2)},
		4: {ID: 4, ManagerID: mid(4)},
	}

	tests := []struct {
		name         string
		userID       uint
		newManagerID uint
		want         bool
	}{
		{"self-manage", 1, 1, true},
		{"direct cycle", 1, 2, true},
		{"transitive cycle", 1, 3, true},
		{"valid chain", 3, 1, false},
		{"sibling assignment", 2, 3, true},
		{"unknown manager", 1, 99, false},
		{"pre-existing unrelated loop", 1, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WouldCreateManagerCycle(users, tt.userID, tt.newManagerID); got != tt.want {
				t.Errorf("WouldCreateManagerCycle(%d, %d) = %v, want %v", tt.userID, tt.newManagerID, got, tt.want)
			}
		})
	}
}

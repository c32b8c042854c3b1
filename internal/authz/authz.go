// Package authz contains the pure authorization predicates for assessment
// access. The predicates decide only, they never touch storage.
package authz

import "skillmatrix/internal/models"

// CanView reports whether actor may read owner's assessments. Owners see
// their own, elevated roles see everything, managers see their department.
func CanView(actor, owner *models.User) bool {
	if actor.ID == owner.ID {
		return true
	}
	if actor.Role.IsElevated() {
		return true
	}
	return actor.Role == models.RoleManager && actor.DepartmentID == owner.DepartmentID
}

// CanEditSelf reports whether actor may submit a self-assessment on behalf
// of owner. Self-assessment is always author-only, regardless of role.
func CanEditSelf(actor, owner *models.User) bool {
	return actor.ID == owner.ID
}

// CanReview reports whether actor may approve, reject or adjust owner's
// assessments. A manager reviews only inside their own department; an
// indirect superior via the manager chain does not qualify.
func CanReview(actor, owner *models.User) bool {
	if actor.Role.IsElevated() {
		return true
	}
	return actor.Role == models.RoleManager && actor.DepartmentID == owner.DepartmentID
}

// WouldCreateManagerCycle reports whether assigning newManagerID as the
// manager of userID would close a loop in the manager chain. The users map
// is keyed by ID and must contain every user reachable from newManagerID.
func WouldCreateManagerCycle(users map[uint]*models.User, userID, newManagerID uint) bool {
	if userID == newManagerID {
		return true
	}
	seen := map[uint]bool{}
	current := newManagerID
	for current != 0 {
		if current == userID {
			return true
		}
		if seen[current] {
			// Pre-existing loop not involving userID; the new edge
			// does not make it worse.
			return false
		}
		seen[current] = true
		u, ok := users[current]
		if !ok || u.ManagerID == nil {
			return false
		}
		current = *u.ManagerID
	}
	return false
}

package services

import "github.com/velolift/VeloLiftBack/internal/models"

// Access rules are pure functions over an explicit principal. Anonymous
// requests never reach these: the auth middleware rejects them first, and
// the only anonymous surface is the invite landing page.

func CanEditWorkout(p models.Principal, workout *models.Workout) bool {
	return workout != nil && workout.UserID == p.ID
}

// CanViewWorkout covers the owner and, for workout history, the owner's
// linked coach.
func CanViewWorkout(p models.Principal, workout *models.Workout, owner *models.User) bool {
	if workout == nil {
		return false
	}
	if workout.UserID == p.ID {
		return true
	}
	return owner != nil && CanManageAthlete(p, owner)
}

func CanViewProgram(p models.Principal, program *models.Program) bool {
	if program == nil {
		return false
	}
	if program.UserID == p.ID {
		return true
	}
	return program.CoachID != nil && *program.CoachID == p.ID
}

// CanEditProgram: a coach-authored program is editable only by that coach;
// the assigned athlete has read-only access. A self-created program is
// editable only by its owner.
func CanEditProgram(p models.Principal, program *models.Program) bool {
	if program == nil {
		return false
	}
	if program.CoachID != nil {
		return *program.CoachID == p.ID
	}
	return program.UserID == p.ID
}

// CanLogProgramSet: athletes may always log sets for exercises in programs
// assigned to them, regardless of who authored the program.
func CanLogProgramSet(p models.Principal, program *models.Program) bool {
	return program != nil && program.UserID == p.ID
}

// CanSetVideoURL: only a coach-flagged principal may set or change an
// exercise's video URL, and only on a program they could edit anyway.
func CanSetVideoURL(p models.Principal, program *models.Program) bool {
	return p.IsCoach && CanEditProgram(p, program)
}

// CanManageAthlete: a coach may only read or write users linked to them.
func CanManageAthlete(p models.Principal, athlete *models.User) bool {
	if !p.IsCoach || athlete == nil {
		return false
	}
	return athlete.CoachID != nil && *athlete.CoachID == p.ID
}

package models

import "time"

// Program is either self-authored (CoachID nil, editable by its owner) or
// coach-authored for an athlete (CoachID set, editable only by that coach;
// the athlete reads and logs sets).
type Program struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	CoachID     *int64    `json:"coach_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProgramDay struct {
	ID        int64  `json:"id"`
	ProgramID int64  `json:"program_id"`
	DayNumber int    `json:"day_number"`
	Name      string `json:"name"`
}

type ProgramExercise struct {
	ID           int64   `json:"id"`
	ProgramDayID int64   `json:"program_day_id"`
	Position     int     `json:"position"`
	Name         string  `json:"name"`
	TargetSets   *int    `json:"target_sets"`
	TargetReps   *string `json:"target_reps"`
	Notes        *string `json:"notes"`
	VideoURL     *string `json:"video_url"`
}

// ProgramSetLog records logged performance against a program exercise.
// WorkoutSetID cross-references a velocity-tracked Set when the athlete
// used the tracker for that set.
type ProgramSetLog struct {
	ID                int64     `json:"id"`
	ProgramExerciseID int64     `json:"program_exercise_id"`
	UserID            int64     `json:"user_id"`
	Weight            *float64  `json:"weight"`
	Reps              int       `json:"reps"`
	WorkoutSetID      *int64    `json:"workout_set_id"`
	LoggedAt          time.Time `json:"logged_at"`
}

type ProgramDayDetail struct {
	ProgramDay
	Exercises []ProgramExercise `json:"exercises"`
}

type ProgramDetail struct {
	Program
	Days []ProgramDayDetail `json:"days"`
}

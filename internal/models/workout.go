package models

import "time"

type Workout struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Notes       *string    `json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Set aggregates are derived from the child reps. Nil means "no data": a
// set whose reps carry no velocity readings has nil velocity aggregates,
// never zero.
type Set struct {
	ID            int64     `json:"id"`
	WorkoutID     int64     `json:"workout_id"`
	SetNumber     int       `json:"set_number"`
	Exercise      string    `json:"exercise"`
	Weight        *float64  `json:"weight"`
	RepsCompleted int       `json:"reps_completed"`
	AvgDepth      *float64  `json:"avg_depth"`
	AvgVelocity   *float64  `json:"avg_velocity"`
	MinVelocity   *float64  `json:"min_velocity"`
	MaxVelocity   *float64  `json:"max_velocity"`
	FatigueDrop   *float64  `json:"fatigue_drop"`
	CreatedAt     time.Time `json:"created_at"`
}

// SetAggregates carries the derived fields recomputed from a set's reps.
type SetAggregates struct {
	RepsCompleted int
	AvgDepth      *float64
	AvgVelocity   *float64
	MinVelocity   *float64
	MaxVelocity   *float64
	FatigueDrop   *float64
}

type Rep struct {
	ID          int64     `json:"id"`
	SetID       int64     `json:"set_id"`
	RepNumber   int       `json:"rep_number"`
	Depth       *float64  `json:"depth"`
	TimeSeconds *float64  `json:"time_seconds"`
	Velocity    *float64  `json:"velocity"`
	Quality     *string   `json:"quality"`
	CreatedAt   time.Time `json:"created_at"`
}

type SetDetail struct {
	Set
	Reps []Rep `json:"reps"`
}

type WorkoutDetail struct {
	Workout
	Sets []SetDetail `json:"sets"`
}

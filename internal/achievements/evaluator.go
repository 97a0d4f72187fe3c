// ABOUTME: Achievement evaluator run after each completed workout.
// ABOUTME: Recomputes progress per active definition and grants XP on completion.
package achievements

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/repository"
)

// MorningCutoffHour is the local hour before which a workout counts as a
// morning workout.
const MorningCutoffHour = 10

// Unlocked is an achievement completed by an evaluation or award.
type Unlocked struct {
	Definition *models.AchievementDefinition
	XP         int64
}

// Options wire an Evaluator. Achievements, Workouts and Users are required.
type Options struct {
	Achievements *repository.AchievementRepository
	Workouts     *repository.WorkoutRepository
	Users        *repository.UserRepository
	Location     *time.Location
	Log          logrus.FieldLogger
	Now          func() time.Time
}

// Evaluator applies achievement rules to finished workouts and grants their XP.
type Evaluator struct {
	achievements *repository.AchievementRepository
	workouts     *repository.WorkoutRepository
	users        *repository.UserRepository
	loc          *time.Location
	log          logrus.FieldLogger
	now          func() time.Time
}

// New returns an Evaluator; Location defaults to time.Local.
func New(opts Options) *Evaluator {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Evaluator{
		achievements: opts.Achievements,
		workouts:     opts.Workouts,
		users:        opts.Users,
		loc:          opts.Location,
		log:          opts.Log.WithField("component", "achievements"),
		now:          opts.Now,
	}
}

// measurement is what one rule observed for one definition.
type measurement struct {
	value   float64
	reached bool
	skip    bool
}

// Evaluate recomputes progress of every active definition for the owner of
// w, which must be finished. Definitions that just completed are returned
// and their XP is added to the user's stats. Re-running with unchanged
// state writes nothing and unlocks nothing.
func (e *Evaluator) Evaluate(ctx context.Context, w *models.CompletedWorkout) ([]Unlocked, error) {
	if w == nil || w.InProgress() {
		return nil, fmt.Errorf("%w: only finished workouts are evaluated", repository.ErrInvalid)
	}
	defs, err := e.achievements.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	history, err := e.history(ctx, w)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var unlocked []Unlocked
	for _, def := range defs {
		p, err := e.achievements.ProgressOrNew(ctx, w.UserID, def.ID)
		if err != nil {
			return unlocked, err
		}
		m := e.measure(def, p, w, history, now)
		if m.skip {
			continue
		}
		changed, justCompleted := p.Apply(m.value, m.reached, now)
		if !changed {
			continue
		}
		if _, err := e.achievements.SaveProgress(ctx, p); err != nil {
			return unlocked, fmt.Errorf("save progress %s: %w", def.ID, err)
		}
		if !justCompleted {
			continue
		}
		if _, err := e.users.AddXP(ctx, w.UserID, def.XPReward); err != nil {
			return unlocked, fmt.Errorf("grant xp for %s: %w", def.ID, err)
		}
		e.log.WithFields(logrus.Fields{"user": w.UserID, "achievement": def.ID, "xp": def.XPReward}).Info("achievement unlocked")
		unlocked = append(unlocked, Unlocked{Definition: def, XP: def.XPReward})
	}
	return unlocked, nil
}

// history returns every finished workout of the user, including w even if
// it has not been saved yet.
func (e *Evaluator) history(ctx context.Context, w *models.CompletedWorkout) ([]*models.CompletedWorkout, error) {
	done, err := e.workouts.ListCompleted(ctx, w.UserID)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	for _, d := range done {
		if d.ID == w.ID {
			return done, nil
		}
	}
	return append(done, w), nil
}

func (e *Evaluator) measure(def *models.AchievementDefinition, p *models.AchievementProgress, w *models.CompletedWorkout, history []*models.CompletedWorkout, now time.Time) measurement {
	relevant := history
	if def.CategoryID != "" {
		relevant = inCategory(history, def.CategoryID)
	}

	switch def.Type {
	case models.AchievementWorkoutCount:
		v := float64(len(relevant))
		return measurement{value: v, reached: v >= def.Target}

	case models.AchievementWorkoutStreak:
		v := float64(models.CurrentStreak(finishTimes(relevant), now, e.loc))
		return measurement{value: v, reached: v >= def.Target}

	case models.AchievementMorningWorkouts:
		var n int
		for _, h := range relevant {
			if IsMorning(h, e.loc) {
				n++
			}
		}
		v := float64(n)
		return measurement{value: v, reached: v >= def.Target}

	case models.AchievementWorkoutDuration:
		if def.CategoryID != "" && w.CategoryID != def.CategoryID {
			return measurement{skip: true}
		}
		d := float64(w.Duration)
		return measurement{value: maxFloat(p.CurrentValue, d), reached: d >= def.Target}

	case models.AchievementExerciseWeight:
		ex, ok := w.Exercise(def.ExerciseID)
		if !ok {
			return measurement{skip: true}
		}
		best := ex.MaxWeight()
		return measurement{value: maxFloat(p.CurrentValue, best), reached: best >= def.Target}

	default:
		// First-time achievements are only granted through Award.
		return measurement{skip: true}
	}
}

// Award completes a definition explicitly and grants its XP. It reports
// false, granting nothing, when the user already had it.
func (e *Evaluator) Award(ctx context.Context, userID, achievementID string) (*Unlocked, bool, error) {
	def, awarded, err := e.achievements.Award(ctx, userID, achievementID)
	if err != nil || !awarded {
		return nil, false, err
	}
	if _, err := e.users.AddXP(ctx, userID, def.XPReward); err != nil {
		return nil, false, fmt.Errorf("grant xp for %s: %w", def.ID, err)
	}
	e.log.WithFields(logrus.Fields{"user": userID, "achievement": def.ID, "xp": def.XPReward}).Info("achievement awarded")
	return &Unlocked{Definition: def, XP: def.XPReward}, true, nil
}

// IsMorning reports whether w finished before MorningCutoffHour in loc.
func IsMorning(w *models.CompletedWorkout, loc *time.Location) bool {
	if w.EndTime == nil {
		return false
	}
	return w.EndTime.In(loc).Hour() < MorningCutoffHour
}

func finishTimes(ws []*models.CompletedWorkout) []time.Time {
	out := make([]time.Time, 0, len(ws))
	for _, w := range ws {
		if w.EndTime != nil {
			out = append(out, *w.EndTime)
		}
	}
	return out
}

func inCategory(ws []*models.CompletedWorkout, categoryID string) []*models.CompletedWorkout {
	var out []*models.CompletedWorkout
	for _, w := range ws {
		if w.CategoryID == categoryID {
			out = append(out, w)
		}
	}
	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

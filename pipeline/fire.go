package pipeline

import (
	"github.com/samber/lo"

	"github.com/firewatch/fd-go/model"
)

// FireClassSet is the fixed set of detector class ids considered fire or
// smoke indicators. Configured once at startup and immutable during a run.
type FireClassSet map[int]bool

func NewFireClassSet(ids []int) FireClassSet {
	return lo.SliceToMap(ids, func(id int) (int, bool) {
		return id, true
	})
}

func (s FireClassSet) Contains(classID int) bool {
	return s[classID]
}

// IsFire reports whether any detection's class id is a member of the fire
// class set. Confidence filtering already happened in the detector, so
// membership alone decides. Pure function: no side effects, no state.
func IsFire(detections []model.Detection, fireSet FireClassSet) bool {
	return lo.SomeBy(detections, func(d model.Detection) bool {
		return fireSet.Contains(d.ClassID)
	})
}

// BestFire returns the highest-confidence fire detection, if any.
func BestFire(detections []model.Detection, fireSet FireClassSet) (model.Detection, bool) {
	best := model.Detection{}
	found := false
	for _, d := range detections {
		if !fireSet.Contains(d.ClassID) {
			continue
		}
		if !found || d.Confidence > best.Confidence {
			best = d
			found = true
		}
	}
	return best, found
}

package mot

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// centroidSmoother keeps 2D Kalman filter over track centroid.
// It only produces the smoothed history of a track, association uses raw positions.
// Filter steps once per observation, frames without a match are not fed to it.
type centroidSmoother struct {
	tracker *kalman_filter.Kalman2D
}

func newCentroidSmoother(start Point, dt float64) *centroidSmoother {
	/* Kalman filter props */
	ux := 1.0
	uy := 1.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	kf := kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(start.X, start.Y))
	return &centroidSmoother{
		tracker: kf,
	}
}

// observe executes full predict/update cycle and returns smoothed centroid
func (s *centroidSmoother) observe(measurement Point) (Point, error) {
	s.tracker.Predict()
	err := s.tracker.Update(measurement.X, measurement.Y)
	if err != nil {
		return measurement, errors.Wrap(err, "Can't update centroid smoother")
	}
	stateX, stateY := s.tracker.GetState()
	return Point{X: stateX, Y: stateY}, nil
}

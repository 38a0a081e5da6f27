// Package badge simulates the hanging badge on the home page: a card on a
// short rope that visitors can grab and throw. The server runs the physics
// and streams the band curve and card position to the browser.
package badge

import "math"

const (
	// Step is the fixed simulation time step.
	Step = 1.0 / 60

	// BandSegments is the number of curve segments in a band frame.
	BandSegments = 32

	gravity         = -40.0
	linearDamping   = 2.0
	ropeLength      = 1.0
	cardHang        = 1.45
	solverIters     = 20
	minLerpSpeed    = 10.0
	maxLerpSpeed    = 50.0
	sleepSpeed      = 0.01
	sleepAfterSteps = 30
)

// Body indices. The anchor never moves.
const (
	anchor = iota
	joint1
	joint2
	joint3
	card
	bodyCount
)

// Frame is one rendered state of the badge.
type Frame struct {
	Band     []Vec3 `json:"band"`
	Card     Vec3   `json:"card"`
	Dragging bool   `json:"dragging"`
}

// Sim is the badge chain: an anchor, three rope joints and the card. It is
// not safe for concurrent use.
type Sim struct {
	pos  [bodyCount]Vec3
	prev [bodyCount]Vec3
	vel  [bodyCount]Vec3

	// Smoothed joint positions used for the band so an over-stretched rope
	// does not jitter.
	lerped  [2]Vec3
	hasLerp bool

	dragging   bool
	grabOffset Vec3
	dragTarget Vec3

	restSteps int
}

// NewSim lays the chain out horizontally from origin; it falls into place
// on the first steps.
func NewSim(origin Vec3) *Sim {
	s := &Sim{}
	for i := range s.pos {
		s.pos[i] = origin.Add(Vec3{X: 0.5 * float64(i)})
	}
	return s
}

// Dragging reports whether the card is held by the pointer.
func (s *Sim) Dragging() bool { return s.dragging }

// Card returns the card position.
func (s *Sim) Card() Vec3 { return s.pos[card] }

// Drag moves the card toward the world point under the pointer. The first
// call of a drag records where on the card the pointer grabbed it.
func (s *Sim) Drag(target Vec3) {
	if !s.dragging {
		s.grabOffset = target.Sub(s.pos[card])
		s.dragging = true
	}
	s.dragTarget = target.Sub(s.grabOffset)
	s.restSteps = 0
}

// Release lets go of the card. It keeps the velocity of the last drag
// steps, so a quick release throws it.
func (s *Sim) Release() {
	s.dragging = false
	s.restSteps = 0
}

// Sleeping reports whether the chain has been still long enough that
// further steps would not change the frame.
func (s *Sim) Sleeping() bool {
	return !s.dragging && s.restSteps >= sleepAfterSteps
}

// Advance runs one fixed step of dt seconds.
func (s *Sim) Advance(dt float64) {
	if dt <= 0 {
		return
	}

	damping := 1 / (1 + dt*linearDamping)
	for i := joint1; i < bodyCount; i++ {
		s.prev[i] = s.pos[i]
		if i == card && s.dragging {
			s.pos[i] = s.dragTarget
			continue
		}
		s.vel[i].Y += gravity * dt
		s.vel[i] = s.vel[i].Scale(damping)
		s.pos[i] = s.pos[i].Add(s.vel[i].Scale(dt))
	}
	s.prev[anchor] = s.pos[anchor]

	for iter := 0; iter < solverIters; iter++ {
		s.solve(anchor, joint1, ropeLength, true)
		s.solve(joint1, joint2, ropeLength, true)
		s.solve(joint2, joint3, ropeLength, true)
		s.solve(joint3, card, cardHang, false)
	}

	moving := false
	for i := joint1; i < bodyCount; i++ {
		s.vel[i] = s.pos[i].Sub(s.prev[i]).Scale(1 / dt)
		if s.vel[i].Len() > sleepSpeed {
			moving = true
		}
	}
	if moving {
		s.restSteps = 0
	} else {
		s.restSteps++
	}

	s.smooth(dt)
}

// Frame returns the band curve through the card joint, the smoothed middle
// joints and the anchor.
func (s *Sim) Frame() Frame {
	j1, j2 := s.pos[joint1], s.pos[joint2]
	if s.hasLerp {
		j1, j2 = s.lerped[0], s.lerped[1]
	}
	return Frame{
		Band:     CatmullRom([]Vec3{s.pos[joint3], j2, j1, s.pos[anchor]}, BandSegments),
		Card:     s.pos[card],
		Dragging: s.dragging,
	}
}

func (s *Sim) invMass(i int) float64 {
	if i == anchor || (i == card && s.dragging) {
		return 0
	}
	return 1
}

// solve projects bodies a and b onto the constraint |a-b| <= length, or
// |a-b| == length when the link is rigid rather than a rope.
func (s *Sim) solve(a, b int, length float64, rope bool) {
	d := s.pos[b].Sub(s.pos[a])
	dist := d.Len()
	if dist == 0 || (rope && dist <= length) {
		return
	}
	wa, wb := s.invMass(a), s.invMass(b)
	sum := wa + wb
	if sum == 0 {
		return
	}
	corr := d.Scale((dist - length) / dist / sum)
	s.pos[a] = s.pos[a].Add(corr.Scale(wa))
	s.pos[b] = s.pos[b].Sub(corr.Scale(wb))
}

// smooth eases the rendered middle joints toward their simulated positions,
// faster the further behind they are.
func (s *Sim) smooth(dt float64) {
	if !s.hasLerp {
		s.lerped = [2]Vec3{s.pos[joint1], s.pos[joint2]}
		s.hasLerp = true
		return
	}
	for i, body := range []int{joint1, joint2} {
		dist := math.Max(0.1, math.Min(1, s.lerped[i].Dist(s.pos[body])))
		t := math.Min(1, dt*(minLerpSpeed+dist*(maxLerpSpeed-minLerpSpeed)))
		s.lerped[i] = s.lerped[i].Lerp(s.pos[body], t)
	}
}

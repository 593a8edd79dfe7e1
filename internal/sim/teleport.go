package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/rig"
)

// DefaultTeleportReach is the distance covered by a fully deflected stick.
const DefaultTeleportReach = 3.0

// PawnTeleporter moves the pawn root on the floor plane. The aim point is the
// pawn location plus the stick deflection scaled by Reach, with stick y
// pointing forward along +X.
type PawnTeleporter struct {
	pawn   *rig.Pawn
	hands  []*rig.MotionControllerHand
	reach  float64
	aiming bool
	target mgl64.Vec3
	log    log.Log
}

func NewPawnTeleporter(pawn *rig.Pawn, reach float64, l log.Log) *PawnTeleporter {
	if reach <= 0 {
		reach = DefaultTeleportReach
	}
	return &PawnTeleporter{pawn: pawn, reach: reach, log: log.OrNop(l)}
}

// Attach registers hands that are told when the pawn teleports.
func (t *PawnTeleporter) Attach(hands ...*rig.MotionControllerHand) {
	t.hands = append(t.hands, hands...)
}

func (t *PawnTeleporter) Aiming() bool       { return t.aiming }
func (t *PawnTeleporter) Target() mgl64.Vec3 { return t.target }

func (t *PawnTeleporter) UpdateAim(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return
	}
	root := t.pawn.Root().Translation
	t.target = root.Add(mgl64.Vec3{y * t.reach, -x * t.reach, 0})
	t.aiming = true
}

func (t *PawnTeleporter) CancelAim() { t.aiming = false }

// Teleport moves the pawn to the aim point. The hands are frozen before the
// move and snapped back to their controllers after it.
func (t *PawnTeleporter) Teleport() bool {
	if !t.aiming {
		return false
	}
	t.aiming = false

	for _, h := range t.hands {
		h.OnPawnTeleport(true)
	}
	root := t.pawn.Root()
	t.pawn.SetRoot(root.WithTranslation(t.target))
	for _, h := range t.hands {
		h.OnPawnTeleport(false)
	}

	t.log.Info("pawn teleported",
		log.Float64("x", t.target.X()),
		log.Float64("y", t.target.Y()),
	)
	return true
}

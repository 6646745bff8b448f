package dispatch

import (
	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"
)

// Select binds the most capable implementation tier that does not exceed the
// configured version ceiling. It runs exactly once per backend; the chosen
// tier and its probed optional operations never change afterwards.
func Select(table *ProcTable, snap *capability.Snapshot, settings *config.Settings) (OperationSet, error) {
	if table == nil {
		return nil, &core.InitializationFailureError{Reason: "no native driver bound"}
	}
	if err := table.validate(); err != nil {
		return nil, err
	}

	effective := capability.Min(snap.Version(), settings.Ceiling())

	var ops OperationSet
	switch {
	case effective >= Tier13:
		ops = &tier13{newOpsCore(Tier13, table, snap, settings)}
	case effective >= Tier12:
		ops = &tier12{newOpsCore(Tier12, table, snap, settings)}
	case effective >= Tier11:
		ops = &tier11{newOpsCore(Tier11, table, snap, settings)}
	case effective >= Tier10:
		ops = &tier10{newOpsCore(Tier10, table, snap, settings)}
	default:
		return nil, &core.InitializationFailureError{
			Reason: "no implementation tier at or below effective version " + effective.String(),
		}
	}

	core.LogInfo("bound operation set tier %s (detected %s, ceiling %s) on '%s'",
		ops.Tier().String(), snap.Version().String(), settings.Ceiling().String(), snap.DeviceName())
	for op := OptionalOp(0); op < opCount; op++ {
		if ops.Supports(op) {
			core.LogDebug("optional operation available: %s", op.String())
		}
	}
	return ops, nil
}

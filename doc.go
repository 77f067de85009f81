// Package procsched simulates the process-management and scheduling core of a
// small Unix-like teaching kernel.
//
// Processes live in a fixed-size table guarded by a single lock and move
// through the Embryo, Runnable, Running, Sleeping and Zombie states. Every
// simulated CPU runs a scheduling loop that picks the runnable process with
// the smallest priority, breaking ties by the closest deadline. Processes may
// carry a daily time window during which an alternate priority applies and a
// deadline after which they are demoted and flagged overdue.
//
// Applications typically use the Service facade exposed by the root package:
//
//	srv, _ := procsched.New(procsched.WithConfig(config))
//	_ = srv.Start(ctx)
//	pid, _ := srv.Spawn(ctx, "worker", func(p *kernel.Proc) { p.Yield() })
//	_, _ = srv.SetTime(ctx, pid, 2, model.NewTimeOfDay(9, 0), model.NewTimeOfDay(17, 0), model.NewTimeOfDay(18, 0))
//	_ = srv.Cps(ctx, os.Stdout)
//
// The kernel itself lives in runtime/kernel; scheduling rules in policy.
package procsched

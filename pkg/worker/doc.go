// Package worker drives the periodic sweeps of an orderdesk Service:
// stuck-order recovery, the customer notification backlog and the retention
// purge.
//
// Each sweep can be run once (RunRecovery, RunNotify, RunPurge), which is
// what the CLI's sweep command does from an external scheduler, or scheduled
// in-process with Start. Scheduling uses github.com/robfig/cron with a fixed
// interval per sweep.
//
// Overlapping runs are safe because every sweep only applies conditional
// updates, but a sweep that is still running when its next tick fires is
// skipped so slow stores do not pile up work.
package worker

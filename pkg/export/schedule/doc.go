// Package schedule submits exports on cron schedules.
//
// Entries come from the schedules section of the config and can be
// replaced while the scheduler runs, which is how `tabula serve` applies a
// reloaded config file. A gift card entry with created_today set exports
// the orders placed on the day it fires.
package schedule

// Package lib holds modules that fit no single layer: the process marker
// store, the Asynq job service, the Resend email client and small utilities.
package lib

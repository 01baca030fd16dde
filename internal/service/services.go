// Package service contains the business logic.
//
// It sits between the handler and repository layers: handlers pass in
// validated requests, services apply the card request rules and keep the
// process markers in step with the stored records.
package service

import (
	"github.com/deppfellow/cardapi/internal/lib/job"
	"github.com/deppfellow/cardapi/internal/repository"
	"github.com/deppfellow/cardapi/internal/server"
)

// Services groups every service instance.
type Services struct {
	Auth    *AuthService
	Client  *ClientService
	Process *ProcessService
	Job     *job.JobService
}

// NewService wires the services and registers the marker reconciler with
// the job service, so jobs must be started after this returns.
func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	var notifier ProcessNotifier = nopNotifier{}
	if s.Job != nil {
		notifier = s.Job
	}

	process := NewProcessService(repos.Client, s.Markers, notifier, s.Logger)
	if s.Job != nil {
		s.Job.SetReconciler(process)
	}

	return &Services{
		Auth:    NewAuthService(s),
		Client:  NewClientService(repos.Client, process, s.Logger),
		Process: process,
		Job:     s.Job,
	}, nil
}

package app

import (
	"context"
	"github.com/oklog/run"
)

// Service a long-lived component. Run blocks until ctx is done or the component fails.
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc adapts a function to a Service
type ServiceFunc func(ctx context.Context) error

// Run calls f
func (f ServiceFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// App runs services together. The first one to return stops all the others.
type App struct {
	services []Service
	runner   *run.Group
}

// New an App with no services, add them with WithService
func New() *App {
	return &App{
		services: make([]Service, 0),
		runner:   &run.Group{},
	}
}

// WithService adds s to the services started by Run
func (a *App) WithService(s Service) *App {
	a.services = append(a.services, s)
	return a
}

// Run blocks until every service returned and reports the error of the first one to return
func (a *App) Run(ctx context.Context) error {
	for _, service := range a.services {
		a.runner.Add(actor(ctx, service))
	}
	return a.runner.Run()
}

// actor pairs a service with the interrupt that cancels its context,
// passing on the error that stopped the group as the cause
func actor(ctx context.Context, service Service) (func() error, func(err error)) {
	ctx, cancel := context.WithCancelCause(ctx)

	return func() error {
			return service.Run(ctx)
		}, func(err error) {
			cancel(err)
		}
}

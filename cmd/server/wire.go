// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"hemato_backend/internal/app"
	"hemato_backend/internal/config"
	"hemato_backend/internal/donor"
	"hemato_backend/internal/firebase"
	"hemato_backend/internal/jobs"
	"hemato_backend/internal/mailer"
	"hemato_backend/internal/platform/database"
	"hemato_backend/internal/platform/logger"
	"hemato_backend/internal/shared"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		database.NewGORM,
		provideCleanup,

		// External collaborators
		firebase.NewService,
		wire.Bind(new(shared.IdentityProvider), new(*firebase.Service)),
		mailer.NewSMTPService,
		wire.Bind(new(mailer.Service), new(*mailer.SMTPService)),

		// Donor module
		donor.NewGORMRepository,
		donor.NewService,
		donor.NewHandler,

		// Jobs
		jobs.NewPendingExpiryJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}

// Package domain contains the core business concepts of the consent-pdf service.
// Keep this package free of transport (HTTP) and infrastructure (Redis/Postgres) concerns.
package domain

// Package http provides HTTP handlers and middleware for the reservation API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}. The token
//     is also set as the `reservations_session` cookie and the response names the
//     landing page for the account's role. DELETE /sessions/current revokes it.
//   - POST /accounts, /accounts/confirm, /accounts/password-reset, /accounts/password:
//     public sign-up, email confirmation and password reset. These routes and
//     POST /reservations are rate limited per client address.
//   - GET /accounts, POST /accounts/staff, POST /accounts/{id}/role: administrator
//     account management exchanging `accountDTO`.
//   - POST /reservations, GET /reservations/options: booking and the data the booking
//     form needs (zones, channels, devices and policy limits).
//   - GET /my-reservations, POST /my-reservations/{id}/cancel,
//     GET /my-reservations/{id}/status: the customer's own bookings.
//   - GET /admin/reservations[/export], POST /admin/reservations/{id}/{state,reschedule,delete}:
//     staff management. The export is an xlsx workbook.
//   - GET|POST /tables, PUT|DELETE /tables/{id}, GET /tables/occupancy: floor plan.
//   - GET|POST /config/hours, DELETE /config/hours/{id}, GET|PUT /config/policy.
//   - GET /reports/summary[/export], GET /admin/dashboard.
//   - GET /healthz and GET /metrics are unauthenticated.
//
// Failures are JSON bodies of the form {"error_code","message","errors"}; booking
// conflicts add "max_capacity" and "conflicts".
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http

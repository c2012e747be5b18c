// Package mercadopago is a thin client for the Mercado Pago recurring
// billing REST API (preapproval plans, preapprovals, payments).
//
// Mercado Pago exposes two API surfaces for the same subscription objects:
// the original /preapproval endpoints and the newer /v1/subscriptions
// endpoints. Their response vocabularies differ slightly, so the client
// treats responses as loosely typed maps and extracts logical values
// (checkout URL, period dates, status) through ordered candidate-field
// tables. Reads and updates try the primary surface first and fall back to
// the secondary only on a 400/404 response; any other failure is surfaced
// as is.
//
// Errors from the API carry the HTTP status code and the parsed error
// payload so callers can branch on specific statuses (404 in particular,
// which the reconciliation engine treats as "remote subscription gone").
package mercadopago

// Package subscription implements the recurring billing core: the
// subscription lifecycle state machine, its reconciliation protocol with
// Mercado Pago, and usage accounting against plan limits.
//
// # Lifecycle
//
// A subscription moves through pending → active → active_until_end_of_cycle
// → canceled, with direct pending → canceled and active → canceled also
// valid. canceled is terminal. Records are never deleted; superseded
// attempts remain as an audit trail, and at most one subscription per user
// is ever in an active status.
//
// # Reconciliation
//
// Mercado Pago owns the source of truth for payment state. Webhooks and
// on-demand reads both funnel through Reconcile, which re-fetches the
// canonical remote record by id — webhook payloads are only a trigger, never
// a data source. Unknown remote status values are deliberately ignored so a
// provider vocabulary change can never silently cancel or activate anyone.
// A remote 404 means the subscription was intentionally terminated and
// forces the local record to canceled.
//
// Expiry is lazy: every read path checks expiresAt before returning data,
// so no background scheduler is needed.
//
// # Architecture
//
//   - Service: all billing operations behind one interface
//   - Store / PlanStore: persistence boundaries (Postgres implementations
//     included)
//   - Provider: the Mercado Pago surface the engine depends on
//   - UsageCounterFunc: delegates consumption counting to the application
//   - Catalog: operator overrides for plan limits
package subscription

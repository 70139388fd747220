// Package integration holds the organization's connections to external
// systems: card gateways (Stripe, Authorize.net) and the Acumatica ERP.
//
//   - Settings: one row per organization and provider with encrypted credentials
//   - SyncLog: the outcome of one ERP sync run
//   - ERPClient: port implemented by the Acumatica adapter in infrastructure
package integration

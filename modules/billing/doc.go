// Package billing exposes the paid-ranking billing flows over HTTP: the
// checkout endpoint used by the directory front-end and the webhook endpoint
// each payment processor delivers events to.
//
// Billing errors are classified before they reach the shared error handler:
// invalid requests and signatures are 400, unknown providers and processors
// 404, write conflicts 409 and processor failures 502. Any non-2xx webhook
// response makes the processor redeliver the event.
package billing

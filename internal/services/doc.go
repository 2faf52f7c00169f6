// Package services defines the remote task service abstraction and its
// provider adapters.
//
// [Service] is the capability interface the sync engine drives: list
// enumeration, full/delta/paginated task fetch, and task/checklist CRUD.
// All providers speak the same generic wire model (task lists, tasks,
// checklist items, error envelopes); the adapters differ in base URL,
// credentials, and whether delta cursors are supported.
//
// Remote failures surface as [*HTTPError] carrying the status code and the
// provider error code, which the engine classifies into its retry/abort
// taxonomy. Cursor invalidation arrives as the ResourceNotFound or
// syncStateNotFound error code.
package services

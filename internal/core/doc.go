// Package core provides the business logic of the user registry API.
//
// This package holds the domain rules independent of HTTP: listing users with
// paging, sorting, search and role filters, creating and editing users with
// their uploaded files, deleting one or many users, exporting the registry as
// CSV, and issuing and resolving login sessions.
//
// # Architecture
//
// The package is organized around a few concepts:
//
//   - Store: persistence contract. [PGStore] implements it on pgxpool.
//   - FileStore: where uploaded profile, gallery and picture files live.
//     [DiskFileStore] keeps them under a directory on local disk.
//   - Service: the entry point used by the web layer. It validates input,
//     hashes passwords and coordinates the stores.
//
// # Listing
//
// [ListParams] mirrors the query parameters the console sends: page, per_page,
// sort, order_by, search and an opaque filter token. [Service.ListUsers]
// rejects unknown sort columns and page sizes outside [PageSizes] with an
// error wrapping [ErrValidation]. Search matches name or email
// case-insensitively; the role filter restricts role_id to a set of ids.
//
// # Errors
//
// Sentinel errors ([ErrNotFound], [ErrValidation], [ErrInvalidCredentials],
// [ErrUnauthenticated]) classify failures for the web layer. [MapError]
// converts any error into a [UserMessage] with a support code.
package core

// Package resource implements the resource catalog: the protected CRUD
// surface whose updates fan out to WebSocket subscribers.
//
// Resources are deliberately minimal (name and description); the
// interesting behavior lives in the update path, where the API layer
// broadcasts a resourceUpdated event to the resource's room after a
// successful write.
package resource

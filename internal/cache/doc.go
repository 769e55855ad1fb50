// Package cache implements a versioned read-through cache for list
// projections plus a plain keyed cache for single entities.
//
// Every list collection has one version token stored under a well-known key:
//
//	Inventory:List:Version -> 3f6c...
//	Inventory:List:v=3f6c... -> encoded []InventoryItem
//
// Invalidating a list is a single overwrite of the version key. Entries under
// the old token are never deleted; they expire on their own TTL. By-id
// entries ("Orders:Id:42") do not depend on the version token.
//
// Backend failures are logged and counted but never returned: a broken
// backend behaves like an empty cache.
package cache

// Package containers provides fixed-layout collections whose descriptors and
// element storage live in a zone.
//
// Every collection is created once from a zone and is never freed on its own:
// it lives until its zone is Reset. The values returned by the constructors
// are small view handles over descriptors kept in zone memory, so copies of a
// handle share state, and element types must be pointer-free (see package
// zone).
//
// None of the collections are safe for concurrent use.
//
//   - StaticArray: fixed capacity, append only.
//   - Pool: fewer than 64 slots, O(1) add and remove through an occupancy mask.
//   - CircularBuffer: fixed capacity, overwrites the oldest entry once full.
//   - BucketArray: grows by linking 64-slot buckets; locators survive growth.
//   - HashTable: open addressing with linear probing, integer keys, no deletion.
package containers

// Package zone implements the bump-pointer memory zones that every
// frame-persistent structure in the engine is carved out of.
//
// # Overview
//
// A Zone owns a contiguous byte range of a larger memory block and hands out
// pieces of it by advancing a single "used" offset. Nothing is ever freed
// individually; the owner of a zone may Reset it, which invalidates every
// structure that was built on top of it.
//
// Zones nest. A controlling zone (the "zone zone") stores the descriptors of
// other zones while their payload ranges are given explicitly, so a single
// platform reservation can be split into independently allocated and
// independently resettable regions:
//
//	res, _ := zone.Reserve(64 << 20)
//	defer res.Release()
//
//	zz, _ := zone.NewRange("zones", res.Bytes(), 0, 1<<20)
//	entities, _ := zz.CreateZone("entities", 1<<20, 32<<20)
//	assets, _ := zz.CreateZone("assets", 33<<20, 31<<20)
//
//	ship, _ := zone.Alloc[Ship](entities)
//	verts, _ := zone.AllocSlice[float32](assets, 3*64)
//
// # Offsets and Refs
//
// Allocate returns offsets into the shared memory block rather than pointers.
// Ref wraps such an offset with its element type so it can be stored inside
// other zone-resident structures and dereferenced later against the zone.
//
// # Pointer-free types
//
// Zone memory is plain bytes: the garbage collector never scans it. Alloc,
// AllocSlice and AllocRef therefore refuse types that contain Go pointers
// (pointers, slices, strings, maps, interfaces, channels, funcs) and return
// ErrPointerType instead.
//
// # Alignment
//
// Allocate applies no padding. Callers that need alignment use
// AllocateAligned, which pads explicitly; the typed helpers always do.
//
// # Errors
//
// Running out of room returns an error wrapping ErrCapacityExceeded. Zones are
// meant to be sized generously up front, so callers usually treat it as fatal.
package zone

// Package relcache implements an entity cache with relationship tracking on
// top of any key-value Provider that can list its keys.
//
// Components:
//   - Provider: byte store (memory, BigCache, Ristretto, Redis, SQLite,
//     Postgres, DynamoDB, MinIO/S3).
//   - Codec[any]: (de)serializes entity values <-> []byte (JSON by default).
//   - Relationship index: per collection key, an ordered duplicate-free list
//     of member ids.
//   - Scan: wildcard matching over dot-segmented keys ("guild.*.members").
//   - Patch: shallow merge of a partial update into the stored record.
//   - Locker: optional per-key lock around read-modify-write sequences.
//
// Keys:
//
//	<ns>:entity:<key>  - entity values (codec bytes)
//	<ns>:rel:<to>      - member lists (wire-framed)
//
// Members are plain ids; Keys(to) derives entity keys as "<to>.<id>".
// The index and the entity store are independent: removing an entity does
// not remove it from any collection, and vice versa.
//
// Concurrency: every call is a sequence of provider operations. Without a
// Locker, AddMembers, RemoveMembers and Patch are read-modify-write races
// (last write wins). Set Options.Locker to serialize them per key.
//
//	cache, _ := relcache.New(relcache.Options{
//	    Namespace: "bot",
//	    Provider:  memory.New(),
//	    Locker:    keylock.NewLocal(),
//	})
//	_ = cache.Set(ctx, "guild.1.members.2", map[string]any{"nick": "x"})
//	_ = cache.AddMembers(ctx, "guild.1.members", "2")
//	vals, _ := cache.Values(ctx, "guild.1.members")
package relcache

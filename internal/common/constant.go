package common

// MetadataKeyOwner is the metadata key holding the persisted identity marker
// (owner id of the last authenticated user).
const MetadataKeyOwner = "owner_id"

// MetadataKeyToken is the metadata key holding the bearer token for the
// remote API.
const MetadataKeyToken = "token"

// MetadataKeySchemaVersion is the metadata key holding the local store
// schema generation, checked at open time.
const MetadataKeySchemaVersion = "schema_version"

// MetadataKeyLastPullPrefix prefixes per-owner last-pull timestamps, e.g.
// "last_pull:42".
const MetadataKeyLastPullPrefix = "last_pull:"

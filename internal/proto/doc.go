// Package proto is the wire contract of the kinlink Registry gRPC service.
//
// Messages travel as google.protobuf.Struct values; the typed Go structs in
// this package are mapped onto them through their json tags with protojson.
// That keeps the service on the standard protobuf codec without a code
// generation step.
//
// # Service
//
//	kinlink.registry.v1.Registry
//	  Ping               liveness probe
//	  GetSalt            per-user salt (random for unknown users)
//	  RegisterUser       create user + own profile
//	  Login              verifier check, token pair
//	  RefreshToken       rotate refresh token
//	  WhoAmI             caller's own profile identity (needs access token)
//	  LookupProfile      point lookup by share code or legacy id
//	  EvaluatePermission access level of caller for target
//	  RecordShareEvent   append-only audit write (ResourceExhausted when throttled)
//	  FetchProfiles      complete (enriched) profiles by id
//	  ListProfiles       partial profiles for bulk sync
package proto

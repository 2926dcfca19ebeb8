// Package buildconst holds constants baked in from local.properties at build
// time. Regenerate with:
//
//	go generate ./internal/buildconst
//
// Keys absent from the properties file are baked in as "null".
package buildconst

//go:generate go run ../../cmd/buildconfig generate --properties ../../local.properties --package buildconst --out buildconst.go

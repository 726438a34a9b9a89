package model

import "github.com/sirupsen/logrus"

// Limits is the decoder-facing subset of the root package's Options:
// every internal/format/* decoder takes a *Limits instead of the root
// Options type, so that decoders never need to import the root
// package (which imports them).
type Limits struct {
	MaxHeaderSize          int64
	MaxRecursionDepth      int
	Logger                 *logrus.Entry
	LastResortArchitecture bool
}

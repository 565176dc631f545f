// Copyright © 2017 Genome Research Limited
// Author: Sendu Bala <sb10@sanger.ac.uk>.
//
//  This file is part of dlcache.
//
//  dlcache is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  dlcache is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with dlcache. If not, see <http://www.gnu.org/licenses/>.

package dlcache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("dlcache")

// span is a thin wrapper narrowing trace.Span to the handful of calls this
// package makes, so the rest of the code doesn't need to import otel
// directly. With no TracerProvider configured by the embedder, otel's
// default is a no-op, so tracing is free until wired up.
type span struct {
	s trace.Span
}

// startSpan begins a span named name as a child of ctx (a background
// context is used if ctx is nil).
func startSpan(ctx context.Context, name string) (context.Context, *span) {
	if ctx == nil {
		ctx = context.Background()
	}
	newCtx, s := tracer.Start(ctx, name)
	return newCtx, &span{s: s}
}

// SetAttr records a key/value pair on the span.
func (sp *span) SetAttr(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		sp.s.SetAttributes(attribute.String(key, v))
	case int:
		sp.s.SetAttributes(attribute.Int(key, v))
	case int64:
		sp.s.SetAttributes(attribute.Int64(key, v))
	case bool:
		sp.s.SetAttributes(attribute.Bool(key, v))
	default:
		sp.s.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// End closes the span.
func (sp *span) End() {
	sp.s.End()
}

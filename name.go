// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package goavro

import "strings"

// nullNamespace is used for named types with no enclosing namespace, and for
// the handful of pseudo-names this package hands out to non-named codecs
// (primitives, array, map, union) so every Codec has a typeName to report in
// error messages.
const nullNamespace = ""

// name holds the fully qualified name of a schema node along with the
// namespace it was resolved against. Named types (record, enum, fixed) are
// registered into the symbol table keyed by fullName; every other node gets
// a name whose fullName is simply its primitive/compound type string.
type name struct {
	fullName string
	ns       string
}

func (n *name) String() string {
	if n == nil {
		return ""
	}
	return n.fullName
}

// fullNameFrom computes the fully qualified name for a named schema,
// following the Avro name resolution rules: a dotted name is already
// qualified; otherwise it is qualified by the nearest enclosing namespace.
func fullNameFrom(enclosingNamespace, n string) string {
	if strings.ContainsRune(n, '.') {
		return n
	}
	if enclosingNamespace == "" {
		return n
	}
	return enclosingNamespace + "." + n
}

// splitFullName splits a fully qualified name into its short name and
// namespace, the inverse of fullNameFrom for the dotted case.
func splitFullName(fullName string) (shortName, namespace string) {
	idx := strings.LastIndexByte(fullName, '.')
	if idx < 0 {
		return fullName, ""
	}
	return fullName[idx+1:], fullName[:idx]
}

// newName builds a name for a named type declaration, honoring an explicit
// "namespace" attribute when present, and qualifying "name" against the
// enclosing namespace otherwise.
func newName(enclosingNamespace, shortOrFull, explicitNamespace string) *name {
	ns := enclosingNamespace
	if explicitNamespace != "" {
		ns = explicitNamespace
	}
	full := fullNameFrom(ns, shortOrFull)
	shortName, resolvedNS := splitFullName(full)
	_ = shortName
	return &name{fullName: full, ns: resolvedNS}
}

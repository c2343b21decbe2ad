// Package bom turns an open kernel document into a bill of materials.
//
// Two independent views are produced over the same label hierarchy: a
// nested AssemblyTree built by the Walker, and a flat PartsList built by
// the Lister. Both resolve names, shapes, colors and attributes through the
// same helpers. Every kernel call is isolated: a failing metric is recorded
// in place of its value, a failing node records a processing error, and
// neither stops the traversal.
package bom

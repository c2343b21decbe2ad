// Package xcaf provides an in-memory labelled assembly document: a flat
// store of labels carrying shapes, names, comments and colors, where
// assembly labels own component labels that place a prototype label at a
// location. It implements the kernel shape, color and attribute tools.
package xcaf

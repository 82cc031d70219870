// Package formats reads Wavefront OBJ text meshes and reads and writes the
// chunked binary geometry format.
//
// A geometry file is a sequence of units. Each unit is a vertex buffer
// chunk, an index buffer chunk (raw or compressed) and a primitive chunk
// naming the material and its primitives.
package formats

// Package encoder drives the external transcoder for planned video
// renditions. The argument list is fixed H.264 output tuned by the
// configured CRF and preset; everything else about the tool is a black box.
package encoder

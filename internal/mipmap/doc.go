// Package mipmap builds the image pyramid facet: progressively halved
// derivatives of an item's thumbnail, each encoded as JPEG and uploaded to
// the content store.
//
// Level encodes and uploads run concurrently; results join in level order.
package mipmap

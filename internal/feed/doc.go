// Package feed adapts the external feed retrieval tool (youtube-dl or a
// compatible fork) behind a narrow client interface.
//
// The tool is treated as a black box: Query dumps a flat playlist window as
// JSON, Fetch downloads a single item's video and thumbnail into a working
// directory and returns the printed metadata. Both operations classify
// failures as source errors.
package feed

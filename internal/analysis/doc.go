// Package analysis runs drop fits over a batch of frames concurrently.
//
// Frames are independent: each gets its own ordering, optimizer and fitters,
// and a failure in one frame never affects another. The volume and surface
// cache is the only state the frames share.
package analysis

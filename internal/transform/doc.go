// Package transform turns a user photo into the two artifacts of a memory:
// a heart-masked square preview and a size-capped full image.
//
// # Overview
//
// A Session holds one in-progress crop interaction: the decoded source,
// the pan offset and the zoom scale as seen through a square viewport of
// ViewportSize pixels. Pan and Zoom update state synchronously and always
// keep the scale inside [MinScale, MaxScale]. Render rasterizes both
// artifacts in the background and returns JPEG bytes.
//
// # Geometry
//
// The source is first fitted so it covers the viewport at scale 1. With
// fitted dimensions (W, H) the draw rectangle in viewport space is
//
//	x = V/2 - W*scale/2 + offset.x
//	y = V/2 - H*scale/2 + offset.y
//	w = W*scale, h = H*scale
//
// The cropped artifact replays the same rectangle on a CanvasSize square
// (scaled by CanvasSize/ViewportSize) and clips it with the heart mask.
// The full artifact is the unmasked source, downscaled so its longer edge
// does not exceed FullMaxEdge.
package transform

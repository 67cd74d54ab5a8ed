// Package render turns a composed timeline plan into a single ffmpeg
// invocation and executes it.
//
// The filter graph is built deterministically from the plan: one trimmed
// input per segment, an xfade chain whose offsets are the plan's stored
// boundary times, picture-in-picture overlays for pip cutaways, the brand
// header, burned-in captions, and an audio bed ducked under full-frame
// cutaways. Each segment feeding a transition is trimmed with the
// transition's duration appended so the chain's running offset always
// lands exactly on the stored boundary and the output keeps the plan's
// total duration.
package render

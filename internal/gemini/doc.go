// Package gemini is a REST client for the Gemini API that implements
// portal.Generator.
//
// Text steps (mind map, notes, slides) call models/<text_model>:generateContent;
// the mind map and slides ask for JSON constrained by a response schema.
// The audio summary calls the speech model with responseModalities AUDIO and
// a prebuilt voice, and decodes the base64 inline PCM. Video lectures use
// models/<video_model>:predictLongRunning and poll the returned operation
// until it is done.
//
// The client does not retry. A failed call is reported once and the caller
// decides what to keep.
package gemini

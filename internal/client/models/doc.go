// Package models defines the client-side data model: the signed-in session,
// archives selected for upload, files the user owns and references to files
// shared with them.
package models

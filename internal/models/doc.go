// Package models defines domain entities and persistence interfaces for the moodmix playlist generator.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing Spotify catalog data
//   - [Artist] : Resolved artist identity
//   - [Track] : Track metadata, identified by its Spotify ID
//   - [AudioFeatures] : Numeric audio descriptors keyed 1:1 with tracks
//   - [Playlist] : A created playlist
//   - [GenerationRequest] / [GenerationResult] : One playlist generation run
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Session] : A signed-in Spotify user's tokens
//   - [Generation] : Record of a completed playlist generation
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models

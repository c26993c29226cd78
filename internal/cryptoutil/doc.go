// Package cryptoutil holds the content digest helpers shared by the content
// sources and the HTTP validator code. Digests are lowercase hex SHA-256.
package cryptoutil

// Package connectors provides implementations of the DocumentSource interface
// for the places data sheets live. Each connector knows how to list and fetch
// documents from one source type (a local directory, an S3 prefix).
package connectors

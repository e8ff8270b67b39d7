// Package mock provides test doubles for the extract package.
//
// The doubles accept function fields for custom behaviour and count calls so
// tests can assert on how the pipeline drove them.
package mock

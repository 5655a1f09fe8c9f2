// Package testutil provides shared schema fixtures for tests.
package testutil

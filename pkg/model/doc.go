// Package model defines the data types shared by every layer of NimbusFS:
// directory entities, their POSIX stat block, chunk/blob identifiers and
// the fixed sizing constants the rest of the system is built around.
package model

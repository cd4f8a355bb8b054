// Package database implements the occurrence repository on PostgreSQL/PostGIS.
package database

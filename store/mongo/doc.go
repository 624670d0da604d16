// Package mongo is a PrincipalStore on MongoDB.
//
// Users and employees are separate collections. An employee references a
// document in roles and a list of documents in modules; lookups expand both
// with $lookup so the engine sees the role name and the flattened module
// names.
package mongo

// Package catalog defines the records that can be exported (products and
// orders), the typed filters that select them and the Store contract that
// record backends implement.
//
// A Store is read in two steps. IDsAfter walks the primary keys of the
// records matching a Query in ascending order, starting strictly after a
// given key. Products and Orders then load a batch of records by id together
// with their related entities, so that projecting a row never has to go back
// to the store.
package catalog

package component

// Discriminant selects among an isotope component type's per-value
// sub-stores. A newtype over the discriminant scalar rather than a bare
// integer, so that a partial accessor's fixed discriminant set reads as a
// list of Discriminant values rather than magic numbers.
type Discriminant uint32

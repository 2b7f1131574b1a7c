package vectorstore

import "docsum/internal/domain"

// Storage persists vectors and supports filtered similarity search.
type Storage = domain.VectorStore

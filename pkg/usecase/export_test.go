package usecase

// OwnerChunkSize is exported for testing
const OwnerChunkSize = ownerChunkSize

// Package models defines the core domain models for Tabsplit.
//
// # Models
//
//   - Receipt: a parsed bill with totals, tax, tip, and its participants
//   - ReceiptItem: a single line item with optional modifiers and a set of claimants
//   - Participant: a person (authenticated user or guest) attached to a receipt
//   - ShareCode: an ephemeral join code mapping to a receipt
//   - ParsedReceipt: the shape produced by the external vision parser at ingestion
//
// # Design principles
//
//  1. All money is integer minor-currency units (cents). Floating point never
//     touches stored amounts; it only appears transiently inside the allocation
//     arithmetic in the engine package.
//  2. Optional numeric fields from the parser default to zero rather than being
//     modeled as pointers. The engine treats "unknown" and "zero" identically.
//  3. Claims store no fractions. An item's split is always equal among its
//     current claimants, recomputed on demand.
//  4. Relationships use ID strings, not pointers, to avoid circular references.
package models

// Package payment builds and validates the payment record tied 1:1 to a
// marketplace transaction.
//
// Core flow:
//   - Initialize constructs exactly one pending Payment from one of two
//     mutually exclusive attribute shapes (FlatAmount or ItemizedRows).
//   - Validate runs save-time struct validation; persisting a Payment is
//     full-or-nothing and belongs to the storage layer.
package payment

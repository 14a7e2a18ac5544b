// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package precompile

// AlchemistABI is the call and event surface of the engine.
const AlchemistABI = `[
  {"type":"function","name":"deposit","stateMutability":"nonpayable",
   "inputs":[{"name":"yieldToken","type":"address"},{"name":"amount","type":"uint256"},{"name":"recipient","type":"address"}],
   "outputs":[{"name":"shares","type":"uint256"}]},
  {"type":"function","name":"depositUnderlying","stateMutability":"nonpayable",
   "inputs":[{"name":"yieldToken","type":"address"},{"name":"amount","type":"uint256"},{"name":"recipient","type":"address"},{"name":"minimumShares","type":"uint256"}],
   "outputs":[{"name":"shares","type":"uint256"}]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable",
   "inputs":[{"name":"yieldToken","type":"address"},{"name":"shares","type":"uint256"},{"name":"recipient","type":"address"}],
   "outputs":[{"name":"amount","type":"uint256"}]},
  {"type":"function","name":"withdrawFrom","stateMutability":"nonpayable",
   "inputs":[{"name":"owner","type":"address"},{"name":"yieldToken","type":"address"},{"name":"shares","type":"uint256"},{"name":"recipient","type":"address"}],
   "outputs":[{"name":"amount","type":"uint256"}]},
  {"type":"function","name":"withdrawUnderlying","stateMutability":"nonpayable",
   "inputs":[{"name":"yieldToken","type":"address"},{"name":"shares","type":"uint256"},{"name":"recipient","type":"address"},{"name":"minimumAmountOut","type":"uint256"}],
   "outputs":[{"name":"amount","type":"uint256"}]},
  {"type":"function","name":"withdrawUnderlyingFrom","stateMutability":"nonpayable",
   "inputs":[{"name":"owner","type":"address"},{"name":"yieldToken","type":"address"},{"name":"shares","type":"uint256"},{"name":"recipient","type":"address"},{"name":"minimumAmountOut","type":"uint256"}],
   "outputs":[{"name":"amount","type":"uint256"}]},
  {"type":"function","name":"mint","stateMutability":"nonpayable",
   "inputs":[{"name":"amount","type":"uint256"},{"name":"recipient","type":"address"}],
   "outputs":[]},
  {"type":"function","name":"mintFrom","stateMutability":"nonpayable",
   "inputs":[{"name":"owner","type":"address"},{"name":"amount","type":"uint256"},{"name":"recipient","type":"address"}],
   "outputs":[]},
  {"type":"function","name":"burn","stateMutability":"nonpayable",
   "inputs":[{"name":"amount","type":"uint256"},{"name":"recipient","type":"address"}],
   "outputs":[{"name":"burned","type":"uint256"}]},
  {"type":"function","name":"repay","stateMutability":"nonpayable",
   "inputs":[{"name":"underlyingToken","type":"address"},{"name":"amount","type":"uint256"},{"name":"recipient","type":"address"}],
   "outputs":[{"name":"repaid","type":"uint256"}]},
  {"type":"function","name":"liquidate","stateMutability":"nonpayable",
   "inputs":[{"name":"yieldToken","type":"address"},{"name":"amount","type":"uint256"},{"name":"minimumAmountOut","type":"uint256"}],
   "outputs":[{"name":"debt","type":"uint256"},{"name":"underlying","type":"uint256"}]},
  {"type":"function","name":"liquidateAccount","stateMutability":"nonpayable",
   "inputs":[{"name":"owner","type":"address"},{"name":"yieldToken","type":"address"},{"name":"amount","type":"uint256"},{"name":"minimumAmountOut","type":"uint256"}],
   "outputs":[{"name":"debt","type":"uint256"},{"name":"underlying","type":"uint256"}]},
  {"type":"function","name":"approveMint","stateMutability":"nonpayable",
   "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"approveWithdraw","stateMutability":"nonpayable",
   "inputs":[{"name":"spender","type":"address"},{"name":"yieldToken","type":"address"},{"name":"shares","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"harvest","stateMutability":"nonpayable",
   "inputs":[{"name":"yieldToken","type":"address"}],
   "outputs":[]},
  {"type":"function","name":"poke","stateMutability":"nonpayable",
   "inputs":[{"name":"owner","type":"address"}],
   "outputs":[]},
  {"type":"function","name":"getMintLimitInfo","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"rate","type":"uint256"},{"name":"maximum","type":"uint256"},{"name":"currentAvailable","type":"uint256"}]},
  {"type":"function","name":"getRepayLimitInfo","stateMutability":"view",
   "inputs":[{"name":"underlyingToken","type":"address"}],
   "outputs":[{"name":"rate","type":"uint256"},{"name":"maximum","type":"uint256"},{"name":"currentAvailable","type":"uint256"}]},
  {"type":"function","name":"getLiquidationLimitInfo","stateMutability":"view",
   "inputs":[{"name":"underlyingToken","type":"address"}],
   "outputs":[{"name":"rate","type":"uint256"},{"name":"maximum","type":"uint256"},{"name":"currentAvailable","type":"uint256"}]},
  {"type":"function","name":"accounts","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"}],
   "outputs":[{"name":"debt","type":"int256"},{"name":"depositedTokens","type":"address[]"}]},
  {"type":"function","name":"positions","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"yieldToken","type":"address"}],
   "outputs":[{"name":"shares","type":"uint256"},{"name":"underlying","type":"uint256"}]},
  {"type":"function","name":"totalValue","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"}],
   "outputs":[{"name":"value","type":"uint256"}]},
  {"type":"function","name":"mintAllowance","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
   "outputs":[{"name":"amount","type":"uint256"}]},
  {"type":"function","name":"withdrawAllowance","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"},{"name":"yieldToken","type":"address"}],
   "outputs":[{"name":"shares","type":"uint256"}]},

  {"type":"event","name":"Deposit","anonymous":false,"inputs":[
   {"name":"sender","type":"address","indexed":true},{"name":"yieldToken","type":"address","indexed":true},
   {"name":"amount","type":"uint256","indexed":false},{"name":"recipient","type":"address","indexed":false},
   {"name":"shares","type":"uint256","indexed":false}]},
  {"type":"event","name":"Withdraw","anonymous":false,"inputs":[
   {"name":"owner","type":"address","indexed":true},{"name":"yieldToken","type":"address","indexed":true},
   {"name":"shares","type":"uint256","indexed":false},{"name":"recipient","type":"address","indexed":false},
   {"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"Mint","anonymous":false,"inputs":[
   {"name":"owner","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},
   {"name":"recipient","type":"address","indexed":false}]},
  {"type":"event","name":"Burn","anonymous":false,"inputs":[
   {"name":"sender","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},
   {"name":"recipient","type":"address","indexed":false}]},
  {"type":"event","name":"Repay","anonymous":false,"inputs":[
   {"name":"sender","type":"address","indexed":true},{"name":"underlyingToken","type":"address","indexed":true},
   {"name":"amount","type":"uint256","indexed":false},{"name":"recipient","type":"address","indexed":false}]},
  {"type":"event","name":"Liquidate","anonymous":false,"inputs":[
   {"name":"owner","type":"address","indexed":true},{"name":"yieldToken","type":"address","indexed":true},
   {"name":"liquidator","type":"address","indexed":false},{"name":"shares","type":"uint256","indexed":false},
   {"name":"debt","type":"uint256","indexed":false},{"name":"underlying","type":"uint256","indexed":false}]},
  {"type":"event","name":"Harvest","anonymous":false,"inputs":[
   {"name":"yieldToken","type":"address","indexed":true},{"name":"rate","type":"uint256","indexed":false},
   {"name":"yield","type":"uint256","indexed":false}]},
  {"type":"event","name":"Loss","anonymous":false,"inputs":[
   {"name":"yieldToken","type":"address","indexed":true},{"name":"rate","type":"uint256","indexed":false},
   {"name":"deficit","type":"uint256","indexed":false}]},
  {"type":"event","name":"Settle","anonymous":false,"inputs":[
   {"name":"owner","type":"address","indexed":true},{"name":"yieldToken","type":"address","indexed":true},
   {"name":"shares","type":"uint256","indexed":false},{"name":"credit","type":"uint256","indexed":false}]},
  {"type":"event","name":"ApproveMint","anonymous":false,"inputs":[
   {"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},
   {"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"ApproveWithdraw","anonymous":false,"inputs":[
   {"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},
   {"name":"yieldToken","type":"address","indexed":false},{"name":"shares","type":"uint256","indexed":false}]},
  {"type":"event","name":"AddYieldToken","anonymous":false,"inputs":[
   {"name":"yieldToken","type":"address","indexed":true},{"name":"underlyingToken","type":"address","indexed":false}]},
  {"type":"event","name":"AddUnderlyingToken","anonymous":false,"inputs":[
   {"name":"underlyingToken","type":"address","indexed":true}]},
  {"type":"event","name":"TokenEnabled","anonymous":false,"inputs":[
   {"name":"token","type":"address","indexed":true},{"name":"enabled","type":"bool","indexed":false}]},
  {"type":"event","name":"AdminUpdated","anonymous":false,"inputs":[
   {"name":"admin","type":"address","indexed":false}]},
  {"type":"event","name":"PendingAdminUpdated","anonymous":false,"inputs":[
   {"name":"pendingAdmin","type":"address","indexed":false}]}
]`

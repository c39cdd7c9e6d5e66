/*
Package codec encodes and decodes the opaque action tokens attached to menu buttons.

A token is a tagged union with four decodable shapes:

  - Category: a small fixed integer selecting a menu choice ("0" = movie).
  - Back: the navigation token "4".
  - Related: "<kind>-<itemId>", e.g. "1-42" for "similar to item 42".
  - Item: any other string matching the deployment's identifier shape. Ids
    equal to a category or Back value are written with a leading "#" ("#5"),
    so every token has exactly one wire form.

Decode is total: strings matching no shape yield a Malformed token carrying the
raw input, never an error or a panic.
*/
package codec
